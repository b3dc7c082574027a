// SPDX-License-Identifier: MIT

// Package validate accumulates field-level configuration errors so a single
// run reports every problem at once.
package validate

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Error is one failed field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries every failed field of one validation run.
type ValidationError struct {
	errs []Error
}

// Errors returns the failed fields in the order they were checked.
func (e ValidationError) Errors() []Error { return e.errs }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, fe := range e.errs {
		msgs[i] = fe.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validator collects errors; the zero value is ready to use.
type Validator struct {
	errs []Error
}

func New() *Validator { return &Validator{} }

// AddError records a failure for field.
func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) IsValid() bool { return len(v.errs) == 0 }
func (v *Validator) Errors() []Error { return v.errs }

// Err returns nil or a ValidationError holding a copy of the collected errors.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return ValidationError{errs: slices.Clone(v.errs)}
}

func checkMin[T cmp.Ordered](v *Validator, field string, value, lo T, inclusive bool, what string) {
	if value < lo || (!inclusive && value == lo) {
		v.AddError(field, fmt.Sprintf("%s, got %v", what, value), value)
	}
}

func checkRange[T cmp.Ordered](v *Validator, field string, value, lo, hi T) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("must be within [%v, %v], got %v", lo, hi, value), value)
	}
}

func (v *Validator) Positive(field string, value int) {
	checkMin(v, field, value, 0, false, "must be positive")
}

func (v *Validator) NonNegative(field string, value int) {
	checkMin(v, field, value, 0, true, "cannot be negative")
}

func (v *Validator) Range(field string, value, lo, hi int) { checkRange(v, field, value, lo, hi) }

func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	checkRange(v, field, value, lo, hi)
}

func (v *Validator) PositiveDuration(field string, value time.Duration) {
	checkMin(v, field, value, 0, false, "must be positive")
}

// NonNegativeDuration accepts zero, which callers use for "disabled".
func (v *Validator) NonNegativeDuration(field string, value time.Duration) {
	checkMin(v, field, value, 0, true, "cannot be negative")
}

func (v *Validator) DurationAtLeast(field string, value, lo time.Duration) {
	checkMin(v, field, value, lo, true, "must be at least "+lo.String())
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "cannot be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, ", "), value), value)
	}
}

// LogLevel accepts any level zerolog can parse; empty means the default.
func (v *Validator) LogLevel(field, value string) {
	if value == "" {
		return
	}
	if _, err := zerolog.ParseLevel(value); err != nil {
		v.AddError(field, "unknown log level", value)
	}
}

// URL requires a host and, when schemes is non-empty, one of those schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.AddError(field, "invalid URL: "+err.Error(), value)
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
	case len(schemes) > 0 && !slices.Contains(schemes, u.Scheme):
		v.AddError(field, fmt.Sprintf("scheme %q not allowed (use %s)", u.Scheme, strings.Join(schemes, ", ")), value)
	}
}

// ListenAddr accepts host:port with an optional host; port 0 is allowed.
func (v *Validator) ListenAddr(field, addr string) {
	if addr == "" {
		v.AddError(field, "listen address cannot be empty", addr)
		return
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, "invalid listen address: "+err.Error(), addr)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		v.AddError(field, fmt.Sprintf("invalid port %q", portStr), addr)
	}
}

// Directory checks that path is a directory. With create set, a missing
// directory is created (0750) instead of reported.
func (v *Validator) Directory(field, path string, create bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		v.AddError(field, "path must not contain '..'", path)
		return
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && create:
		if err := os.MkdirAll(path, 0o750); err != nil {
			v.AddError(field, "cannot create directory: "+err.Error(), path)
		}
	case errors.Is(err, os.ErrNotExist):
		v.AddError(field, "directory does not exist", path)
	case err != nil:
		v.AddError(field, "cannot access directory: "+err.Error(), path)
	case !info.IsDir():
		v.AddError(field, "not a directory", path)
	}
}
