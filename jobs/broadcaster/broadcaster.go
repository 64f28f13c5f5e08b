package broadcaster

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rbstore/infra/feed"
	"rbstore/infra/metrics"
)

var ErrStopped = errors.New("broadcaster: stopped")

type Config struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	DrainTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 4096
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 250 * time.Millisecond
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
	return c
}

// Broadcaster moves change events from writers to a feed.Publisher. Writers
// hand events over through a bounded queue; a single Run loop batches them
// and retries failed batches before giving up on them.
type Broadcaster struct {
	pub     feed.Publisher
	cfg     Config
	queue   chan feed.Event
	done    chan struct{}
	sending sync.RWMutex // shared by Enqueue, exclusive while stopping
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(pub feed.Publisher, cfg Config, log *slog.Logger, m *metrics.Metrics) *Broadcaster {
	cfg = cfg.withDefaults()
	return &Broadcaster{
		pub:     pub,
		cfg:     cfg,
		queue:   make(chan feed.Event, cfg.QueueSize),
		done:    make(chan struct{}),
		log:     log.With("component", "broadcaster"),
		metrics: m,
	}
}

// Enqueue blocks until ev is queued, ctx is done or the broadcaster stops.
// An event accepted with a nil error is seen by the shutdown drain even when
// Enqueue races with Run returning.
func (b *Broadcaster) Enqueue(ctx context.Context, ev feed.Event) error {
	b.sending.RLock()
	defer b.sending.RUnlock()

	select {
	case <-b.done:
		return ErrStopped
	default:
	}
	select {
	case b.queue <- ev:
		b.metrics.FeedLag.Set(float64(len(b.queue)))
		return nil
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left within DrainTimeout and closes the publisher. A batch interrupted by
// the cancellation is retried by the drain.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info("started", "queue", b.cfg.QueueSize, "batch", b.cfg.BatchSize)

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]feed.Event, 0, b.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			return b.stop(batch)

		case ev := <-b.queue:
			batch = append(batch, ev)
			if len(batch) >= b.cfg.BatchSize {
				if !b.flush(ctx, batch) {
					return b.stop(batch)
				}
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				if !b.flush(ctx, batch) {
					return b.stop(batch)
				}
				batch = batch[:0]
			}
		}
	}
}

// stop rejects new events, waits for in-flight Enqueue calls to return and
// drains the rest.
func (b *Broadcaster) stop(batch []feed.Event) error {
	close(b.done)
	b.sending.Lock()
	defer b.sending.Unlock()
	return b.drain(batch)
}

func (b *Broadcaster) drain(batch []feed.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.DrainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-b.queue:
			batch = append(batch, ev)
			if len(batch) >= b.cfg.BatchSize {
				if !b.flush(ctx, batch) {
					b.drop(batch, ctx.Err())
				}
				batch = batch[:0]
			}
			continue
		default:
		}
		break
	}
	if len(batch) > 0 && !b.flush(ctx, batch) {
		b.drop(batch, ctx.Err())
	}
	b.log.Info("stopped")
	return b.pub.Close()
}

// flush publishes batch, retrying failures. It returns false when ctx ends
// before the batch is delivered or given up on; the caller still owns it.
func (b *Broadcaster) flush(ctx context.Context, batch []feed.Event) bool {
	defer b.metrics.FeedLag.Set(float64(len(b.queue)))

	var err error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * b.cfg.RetryBackoff):
			case <-ctx.Done():
				return false
			}
		}
		if err = b.pub.Publish(ctx, batch); err == nil {
			b.metrics.Feed.WithLabelValues("published").Add(float64(len(batch)))
			return true
		}
		b.metrics.Feed.WithLabelValues("failed").Add(float64(len(batch)))
		b.log.Warn("publish failed", "attempt", attempt+1, "events", len(batch), "err", err)
		if ctx.Err() != nil {
			return false
		}
	}
	b.drop(batch, err)
	return true
}

func (b *Broadcaster) drop(batch []feed.Event, err error) {
	b.metrics.Feed.WithLabelValues("dropped").Add(float64(len(batch)))
	b.log.Error("dropping events",
		"events", len(batch),
		"first_version", batch[0].Version,
		"last_version", batch[len(batch)-1].Version,
		"err", err)
}
