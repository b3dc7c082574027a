// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultStopSubject is the request subject for stop commands.
const DefaultStopSubject = "streamreaper.control.stop"

// StopRequest is the JSON body published on the stop subject.
type StopRequest struct {
	StreamID string `json:"stream_id"`
	Force    bool   `json:"force"`
	Reason   string `json:"reason,omitempty"`
}

// StopReply is what the media plane answers.
type StopReply struct {
	OK       bool   `json:"ok"`
	NotFound bool   `json:"not_found,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NATSConfig configures the NATS request/reply transport.
type NATSConfig struct {
	URL     string
	Subject string
	Timeout time.Duration
}

type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// NATSController sends stop commands as NATS requests and waits for a reply.
type NATSController struct {
	nc      requester
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  zerolog.Logger
}

// DialNATS connects to NATS and returns a controller owning the connection.
func DialNATS(cfg NATSConfig) (*NATSController, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("streamreaper"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	c := newNATSController(nc, cfg)
	c.conn = nc
	return c, nil
}

func newNATSController(nc requester, cfg NATSConfig) *NATSController {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultStopSubject
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATSController{
		nc:      nc,
		subject: subject,
		timeout: timeout,
		logger:  xglog.WithComponent("control.nats"),
	}
}

func (c *NATSController) Stop(ctx context.Context, streamID string, force bool, reason string) error {
	if !broadcast.IsSafeStreamID(streamID) {
		return fmt.Errorf("%w: %q", ErrInvalidStreamID, streamID)
	}
	data, err := json.Marshal(StopRequest{StreamID: streamID, Force: force, Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal stop request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var reply StopReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("%w: malformed reply: %w", ErrUnavailable, err)
	}
	switch {
	case reply.OK:
		return nil
	case reply.NotFound:
		c.logger.Debug().
			Str(xglog.FieldEvent, "control.stop.already_gone").
			Str(xglog.FieldStreamID, streamID).
			Msg("media plane does not know stream")
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrRejected, reply.Error)
	}
}

// Close drains the owned connection, if any.
func (c *NATSController) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Drain()
}

// ServeStopRequests answers stop requests on subject using target. It lets a
// LocalController stand in for the media plane.
func ServeStopRequests(nc *nats.Conn, subject string, target StreamController) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultStopSubject
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var req StopRequest
		reply := StopReply{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			reply.Error = "malformed request"
		} else if err := target.Stop(context.Background(), req.StreamID, req.Force, req.Reason); err != nil {
			reply.Error = err.Error()
		} else {
			reply.OK = true
		}
		data, _ := json.Marshal(reply)
		_ = msg.Respond(data)
	})
}
