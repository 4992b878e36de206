package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
)

const (
	// DefaultQueueSize is used when the configured size is not positive.
	DefaultQueueSize = 256

	sendTimeout = 10 * time.Second
)

// Dispatcher queues events and hands them to a Sender on one worker.
// It satisfies the token notifier interfaces of the oauth and identity services.
type Dispatcher struct {
	logger  *slog.Logger
	sender  Sender
	metrics *metrics.Metrics
	queue   chan Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewDispatcher creates a dispatcher. Start must be called before events are delivered.
func NewDispatcher(logger *slog.Logger, sender Sender, queueSize int, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		logger:  logger,
		sender:  sender,
		metrics: m,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run()
}

// Close stops accepting events, delivers what is queued and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

// TokensIssued queues an issuance event.
func (d *Dispatcher) TokensIssued(username string, pair models.TokenPair) {
	d.enqueue(issuedEvent(username, pair))
}

// TokensRevoked queues a revocation event.
func (d *Dispatcher) TokensRevoked(tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	d.enqueue(Event{Kind: EventRevoked, Tokens: tokens})
}

func (d *Dispatcher) enqueue(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.GatewayEvent("dropped")
		d.logger.Warn("gateway dispatcher closed, event dropped", slog.String("kind", ev.Kind))
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.metrics.GatewayEvent("dropped")
		d.logger.Warn("gateway queue full, event dropped",
			slog.String("kind", ev.Kind),
			slog.Int("tokens", len(ev.Tokens)),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sender.Send(ctx, ev)
		cancel()

		if err != nil {
			d.metrics.GatewayEvent("failed")
			d.logger.Warn("gateway notification failed",
				slog.String("kind", ev.Kind),
				slog.Any("error", err),
			)
			continue
		}
		d.metrics.GatewayEvent("sent")
		d.logger.Debug("gateway notified", slog.String("kind", ev.Kind), slog.Int("tokens", len(ev.Tokens)))
	}
}

// Nop discards every event. It is used when no gateway is configured.
type Nop struct{}

// TokensIssued implements the notifier interface.
func (Nop) TokensIssued(string, models.TokenPair) {}

// TokensRevoked implements the notifier interface.
func (Nop) TokensRevoked(...string) {}
