package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/sethvargo/go-retry"
)

// Sender delivers one encoded event to the transport.
type Sender interface {
	Send(ctx context.Context, eventType string, payload []byte) error
}

// AsyncOptions tune the AsyncPublisher.
type AsyncOptions struct {
	Source      string
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
}

func (o *AsyncOptions) withDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 10 * time.Second
	}
}

// AsyncPublisher queues events in memory and sends them from a single
// worker goroutine with bounded retry and linear backoff. A full queue
// drops the event.
type AsyncPublisher struct {
	sender Sender
	logger logging.Logger
	opts   AsyncOptions
	now    func() time.Time

	// stop aborts sends and backoff waits once a drain deadline passes.
	stop   context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

func NewAsyncPublisher(sender Sender, logger logging.Logger, opts AsyncOptions) *AsyncPublisher {
	opts.withDefaults()
	stop, cancel := context.WithCancel(context.Background())
	p := &AsyncPublisher{
		stop:   stop,
		cancel: cancel,
		sender: sender,
		logger: logger.With("module", "notify"),
		opts:   opts,
		now:    time.Now,
		queue:  make(chan Event, opts.QueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	if e.Source == "" {
		e.Source = p.opts.Source
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn(ctx, "publisher closed, event dropped", "event_type", e.Type)
		return
	}

	select {
	case p.queue <- e:
	default:
		p.logger.Warn(ctx, "event queue full, event dropped", "event_type", e.Type)
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		p.deliver(e)
	}
}

func (p *AsyncPublisher) deliver(e Event) {
	ctx := p.stop

	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error(ctx, "event encode failed", "event_type", e.Type, "error", err)
		return
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(p.opts.MaxAttempts-1), retry.NewLinear(p.opts.Backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.sendOnce(ctx, e.Type, payload); err != nil {
			p.logger.Warn(ctx, "event send failed", "event_type", e.Type, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		p.logger.Error(ctx, "event dropped", "event_type", e.Type, "attempts", attempt, "error", err)
		return
	}
	p.logger.Debug(ctx, "event sent", "event_type", e.Type, "attempt", attempt)
}

func (p *AsyncPublisher) sendOnce(ctx context.Context, eventType string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.SendTimeout)
	defer cancel()
	return p.sender.Send(ctx, eventType, payload)
}

// Close stops accepting events and waits for the queue to drain or ctx to
// end. Events still pending at the deadline are dropped without further
// retries.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("notify drain: %w", ctx.Err())
	}
}
