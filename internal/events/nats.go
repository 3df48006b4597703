package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// flushTimeout bounds how long Publish waits for the server to acknowledge.
const flushTimeout = 5 * time.Second

type natsConnection interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events as JSON messages on a NATS subject.
type NATSPublisher struct {
	conn    natsConnection
	subject string
}

// NewNATSPublisher connects to url, or the default NATS URL when it is empty.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("ralph"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisherWithConn(conn, subject), nil
}

// NewNATSPublisherWithConn wraps an existing connection. The publisher owns
// the connection and closes it on Close.
func NewNATSPublisherWithConn(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// Publish sends the event and flushes so it is not lost if the process exits.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	raw, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, raw); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	// FlushWithContext rejects contexts without a deadline.
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", event.Type, err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}

var _ Publisher = (*NATSPublisher)(nil)
