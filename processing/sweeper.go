// Package processing runs background maintenance over stored images
package processing

import (
	"context"
	"memorylane/lanes"
	"memorylane/storage"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepBatch = 500

var (
	orphansDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memorylane",
		Name:      "orphan_images_deleted_total",
		Help:      "Stored images removed because no memory references them.",
	})
	sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memorylane",
		Name:      "orphan_sweep_failures_total",
		Help:      "Orphan sweeps that stopped on an error.",
	})
)

// References tells which storage keys are still used by a memory
type References interface {
	ReferencedKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

// Sweeper deletes stored images no memory points to. Images younger than
// grace are left alone since their memory row may not be written yet. The
// store may be shared, so only keys in the memory image key format are
// considered.
type Sweeper struct {
	store storage.StorageAPI
	refs  References
	grace time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

func NewSweeper(store storage.StorageAPI, refs References, grace time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{store: store, refs: refs, grace: grace, log: log, now: time.Now}
}

// Sweep makes one pass over the store and returns the number of deleted images
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.grace)
	candidates := []string{}
	for _, obj := range objects {
		if lanes.IsStorageKey(obj.Key) && obj.LastModified.Before(cutoff) {
			candidates = append(candidates, obj.Key)
		}
	}
	deleted := 0
	for start := 0; start < len(candidates); start += sweepBatch {
		end := min(start+sweepBatch, len(candidates))
		batch := candidates[start:end]
		used, err := s.refs.ReferencedKeys(ctx, batch)
		if err != nil {
			return deleted, err
		}
		for _, key := range batch {
			if used[key] {
				continue
			}
			if err = s.store.Delete(ctx, key); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("could not delete orphan image")
				continue
			}
			s.log.Info().Str("key", key).Msg("deleted orphan image")
			orphansDeleted.Inc()
			deleted++
		}
	}
	return deleted, nil
}

func (s *Sweeper) run() {
	deleted, err := s.Sweep(context.Background())
	if err != nil {
		sweepFailures.Inc()
		s.log.Error().Err(err).Int("deleted", deleted).Msg("orphan sweep failed")
		return
	}
	s.log.Debug().Int("deleted", deleted).Msg("orphan sweep done")
}

// Start schedules the sweep with a cron expression such as "@every 6h"
func (s *Sweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
