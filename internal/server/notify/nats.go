package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSSender publishes events to <prefix>.<event type>.
type NATSSender struct {
	conn   natsConn
	prefix string
}

// connectNATS is a seam for tests.
var connectNATS = func(url string, opts ...nats.Option) (natsConn, error) {
	return nats.Connect(url, opts...)
}

func NewNATSSender(url, prefix, name string, logger logging.Logger) (*NATSSender, error) {
	ctx := context.Background()
	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn(ctx, "NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info(ctx, "NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := connectNATS(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSender{conn: conn, prefix: prefix}, nil
}

func (s *NATSSender) Subject(eventType string) string {
	if s.prefix == "" {
		return eventType
	}
	return s.prefix + "." + eventType
}

func (s *NATSSender) Send(ctx context.Context, eventType string, payload []byte) error {
	if err := s.conn.Publish(s.Subject(eventType), payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

func (s *NATSSender) Close() {
	s.conn.Close()
}
