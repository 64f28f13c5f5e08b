// Package stress hammers an ordmap.Map with concurrent writers and readers
// while mirroring every write into an in-memory pebble instance, then
// checks the two agree key for key. Pebble serves purely as a reference
// oracle on a memory filesystem; nothing is persisted.
package stress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"golang.org/x/sync/errgroup"

	"rbstore/domain/ordmap"
)

type Config struct {
	Workers   int
	Readers   int
	Ops       int // puts per worker
	KeySpace  int // distinct keys per worker
	ValueSize int
	Seed      int64
}

type Report struct {
	Puts     int64
	Gets     int64
	Hits     int64
	Keys     int
	Elapsed  time.Duration
	Verified bool
}

var ErrMismatch = errors.New("stress: map disagrees with reference")

// Run executes one stress round. Keys are prefixed by worker id, so each
// key has a single writer and both stores see its writes in the same order.
func Run(ctx context.Context, cfg Config, log *slog.Logger) (Report, error) {
	if cfg.Workers <= 0 || cfg.Ops <= 0 || cfg.KeySpace <= 0 {
		return Report{}, fmt.Errorf("stress: workers, ops and key space must be positive")
	}
	if cfg.ValueSize < 8 {
		cfg.ValueSize = 8
	}

	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return Report{}, fmt.Errorf("open reference store: %w", err)
	}
	defer db.Close()

	m := ordmap.New()
	var rep Report
	start := time.Now()

	writers, wctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		writers.Go(func() error {
			return write(wctx, m, db, cfg, w, &rep.Puts)
		})
	}

	stop := make(chan struct{})
	readers, rctx := errgroup.WithContext(ctx)
	for r := 0; r < cfg.Readers; r++ {
		readers.Go(func() error {
			return read(rctx, m, cfg, r, stop, &rep.Gets, &rep.Hits)
		})
	}

	werr := writers.Wait()
	close(stop)
	rerr := readers.Wait()
	if err := errors.Join(werr, rerr); err != nil {
		return rep, err
	}

	rep.Keys, err = verify(m, db)
	rep.Elapsed = time.Since(start)
	if err != nil {
		return rep, err
	}
	rep.Verified = true

	log.Info("stress run verified",
		"workers", cfg.Workers, "readers", cfg.Readers,
		"puts", rep.Puts, "gets", rep.Gets, "hits", rep.Hits,
		"keys", rep.Keys, "elapsed", rep.Elapsed)
	return rep, nil
}

func workerKey(w, k int) []byte {
	return fmt.Appendf(nil, "w%03d/%08d", w, k)
}

func write(ctx context.Context, m *ordmap.Map, db *pebble.DB, cfg Config, w int, puts *int64) error {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(w)))
	val := make([]byte, cfg.ValueSize)
	for i := 0; i < cfg.Ops; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		key := workerKey(w, rng.IntN(cfg.KeySpace))
		for j := range val {
			val[j] = byte(rng.Uint32())
		}
		if err := m.Put(key, val); err != nil {
			return fmt.Errorf("worker %d put: %w", w, err)
		}
		if err := db.Set(key, val, pebble.NoSync); err != nil {
			return fmt.Errorf("worker %d reference set: %w", w, err)
		}
		atomic.AddInt64(puts, 1)
	}
	return nil
}

func read(ctx context.Context, m *ordmap.Map, cfg Config, r int, stop <-chan struct{}, gets, hits *int64) error {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed)^0xfeed, uint64(r)))
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		key := workerKey(rng.IntN(cfg.Workers), rng.IntN(cfg.KeySpace))
		v, ok := m.Get(key)
		atomic.AddInt64(gets, 1)
		if ok {
			atomic.AddInt64(hits, 1)
			if len(v) != cfg.ValueSize {
				return fmt.Errorf("%w: key %s has %d-byte value", ErrMismatch, key, len(v))
			}
		}
	}
}

func verify(m *ordmap.Map, db *pebble.DB) (int, error) {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
		got, ok := m.Get(iter.Key())
		if !ok {
			return n, fmt.Errorf("%w: key %s missing", ErrMismatch, iter.Key())
		}
		if !bytes.Equal(got, iter.Value()) {
			return n, fmt.Errorf("%w: key %s value differs", ErrMismatch, iter.Key())
		}
	}
	if err := iter.Error(); err != nil {
		return n, err
	}
	if l := m.Len(); l != n {
		return n, fmt.Errorf("%w: map holds %d keys, reference %d", ErrMismatch, l, n)
	}
	if err := m.Validate(); err != nil {
		return n, err
	}
	return n, nil
}
