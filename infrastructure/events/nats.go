// Package events implements the ResultPublisher port over NATS so
// downstream consumers (persistence, payouts, notifications) receive
// completed verification results.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
)

// DefaultSubject is the subject verification results are published to
// when none is configured.
const DefaultSubject = "verity.results"

// Options tunes the NATS connection. Zero values fall back to sensible
// defaults.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Logger         *slog.Logger
}

// Publisher delivers verification results as JSON messages on a NATS
// subject. Publishing is fire-and-forget; delivery guarantees beyond
// at-most-once are the broker's concern.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS at url and returns a publisher on
// subject. An empty subject uses DefaultSubject.
func NewPublisher(url, subject string, options Options) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("verity"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends the result as JSON on the configured subject.
func (p *Publisher) Publish(_ context.Context, result *domain.VerificationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return &ports.PublishError{Subject: p.subject, Err: err}
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return &ports.PublishError{Subject: p.subject, Err: err}
	}
	return nil
}

// Close drains the connection so queued messages flush before shutdown.
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

var _ ports.ResultPublisher = (*Publisher)(nil)
