package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rbstore/domain/ordmap"
	"rbstore/infra/feed"
	"rbstore/infra/metrics"
	"rbstore/infra/sequence"
)

/*
IndexService is the write entry point the transport talks to.

It keeps two ordered maps in one lock domain:
- values:   key -> value
- versions: key -> big-endian write version

Both are updated under a single write hold so a reader never sees a value
paired with the wrong version. Change events reach the sink in version
order, so a consumer replaying the feed ends with the same value per key.
*/

// Sink receives a change event for every accepted write.
type Sink interface {
	Enqueue(ctx context.Context, ev feed.Event) error
}

type IndexService struct {
	mu       sync.RWMutex
	values   *ordmap.Map
	versions *ordmap.Map
	seq      *sequence.Sequencer

	sink    Sink
	turn    *handoff
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

type Stats struct {
	Entries     int
	LastVersion uint64
}

// New wires the service. sink may be nil when no change feed is configured.
func New(sink Sink, m *metrics.Metrics, log *slog.Logger) *IndexService {
	s := &IndexService{
		seq:     sequence.New(0),
		sink:    sink,
		turn:    newHandoff(1),
		metrics: m,
		log:     log.With("component", "index"),
		now:     time.Now,
	}
	var err error
	if s.values, err = ordmap.NewShared(&s.mu); err != nil {
		panic(err)
	}
	if s.versions, err = ordmap.NewShared(&s.mu); err != nil {
		panic(err)
	}
	return s
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Put stores value under key and returns the write version assigned to it.
// The change event is handed to the sink after the lock is released, in
// version order with other writers; a sink failure is logged and does not
// undo the write.
func (s *IndexService) Put(ctx context.Context, key, value []byte) (uint64, error) {
	if key == nil || value == nil {
		s.metrics.Invalid.Inc()
		return 0, fmt.Errorf("index put: %w", ordmap.ErrInvalidArgument)
	}

	version, inserted, entries, err := s.apply(key, value)
	if s.sink != nil {
		s.turn.wait(version)
		defer s.turn.done(version)
	}
	if err != nil {
		s.metrics.Invalid.Inc()
		return 0, err
	}

	kind := "overwrite"
	if inserted {
		kind = "insert"
	}
	s.metrics.Puts.WithLabelValues(kind).Inc()
	s.metrics.Entries.Set(float64(entries))
	s.metrics.Version.Set(float64(version))

	if s.sink != nil {
		ev := feed.Event{
			Version:   version,
			Key:       key,
			Value:     value,
			Time:      s.now(),
			Overwrite: !inserted,
		}
		if err := s.sink.Enqueue(ctx, ev); err != nil {
			s.log.Warn("change event not queued", "version", version, "err", err)
		}
	}
	return version, nil
}

func (s *IndexService) apply(key, value []byte) (version uint64, inserted bool, entries int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version = s.seq.Next()
	if inserted, err = s.values.PutLocked(key, value); err != nil {
		return version, false, 0, err
	}
	if _, err = s.versions.PutLocked(key, encodeVersion(version)); err != nil {
		return version, false, 0, err
	}
	return version, inserted, s.values.LenLocked(), nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Get returns the value for key. Callers must treat it as read-only.
func (s *IndexService) Get(key []byte) ([]byte, bool) {
	v, ok := s.values.Get(key)
	s.countGet(ok)
	return v, ok
}

// GetVersioned returns the value together with the version that wrote it.
func (s *IndexService) GetVersioned(key []byte) ([]byte, uint64, bool) {
	if key == nil {
		s.countGet(false)
		return nil, 0, false
	}

	s.mu.RLock()
	v, ok := s.values.GetLocked(key)
	raw, _ := s.versions.GetLocked(key)
	s.mu.RUnlock()

	s.countGet(ok)
	if !ok {
		return nil, 0, false
	}
	return v, decodeVersion(raw), true
}

func (s *IndexService) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Entries: s.values.LenLocked(), LastVersion: s.seq.Current()}
}

// Validate checks both maps' tree invariants and that they hold the same
// number of keys.
func (s *IndexService) Validate() error {
	if err := s.values.Validate(); err != nil {
		return fmt.Errorf("values: %w", err)
	}
	if err := s.versions.Validate(); err != nil {
		return fmt.Errorf("versions: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, b := s.values.LenLocked(), s.versions.LenLocked(); a != b {
		return errors.Join(ordmap.ErrInvariant, fmt.Errorf("values hold %d keys, versions %d", a, b))
	}
	return nil
}

func (s *IndexService) countGet(hit bool) {
	if hit {
		s.metrics.Gets.WithLabelValues("hit").Inc()
	} else {
		s.metrics.Gets.WithLabelValues("miss").Inc()
	}
}

func encodeVersion(v uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), v)
}

func decodeVersion(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
