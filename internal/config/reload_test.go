// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_ReloadAppliesAndNotifies(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dataDir+"\nreaper:\n  maxAge: 1m\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dataDir+"\nreaper:\n  maxAge: 3m\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, 3*time.Minute, h.Get().Reaper.MaxAge)
	select {
	case got := <-ch:
		assert.Equal(t, 3*time.Minute, got.Reaper.MaxAge)
	default:
		t.Fatal("listener not notified")
	}
}

func TestConfigHolder_InvalidReloadKeepsCurrent(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dataDir+"\nreaper:\n  maxAge: 1m\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	require.NoError(t, os.WriteFile(path, []byte("reaper:\n  pageSize: 0\n"), 0o600))

	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, time.Minute, h.Get().Reaper.MaxAge)
	assert.Equal(t, 100, h.Get().Reaper.PageSize)
}

func TestConfigHolder_FullListenerDoesNotBlock(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dataDir+"\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	h.RegisterListener(make(chan AppConfig))

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Reload blocked on an unbuffered listener")
	}
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dataDir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dataDir+"\nreaper:\n  maxAge: 1m\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	h.debounce = 20 * time.Millisecond
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dataDir+"\nreaper:\n  maxAge: 5m\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, 5*time.Minute, got.Reaper.MaxAge)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}

	cancel()
	h.Wait()
}

func TestConfigHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewConfigHolder(Default(), NewLoader("", "dev"), "")
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Wait()
}

func TestRestartRequired(t *testing.T) {
	old := Default()
	next := old
	next.Reaper.MaxAge = time.Hour
	assert.Empty(t, RestartRequired(old, next))

	next.Reaper.Interval = time.Minute
	next.Store.Backend = "badger"
	next.Control.HTTP.BaseURL = "http://x"
	assert.Equal(t, []string{"reaper.interval", "store", "control"}, RestartRequired(old, next))
}
