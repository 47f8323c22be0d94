// Package retention physically removes snippets that have already expired.
// Removal never changes what the snippet service returns: a record is only
// purged once it is invisible to every read.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/pastebin/pastebin/internal/snippet/repository"
	"github.com/pastebin/pastebin/pkg/logger"
	"github.com/pastebin/pastebin/pkg/metrics"
)

var log = logger.Named("retention")

// Archiver receives each batch before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, recs []*snippet.Snippet) error
}

type Options struct {
	Interval time.Duration
	Grace    time.Duration
	Batch    int
	Archiver Archiver
	Now      func() time.Time
}

type Sweeper struct {
	store    repository.Purger
	interval time.Duration
	grace    time.Duration
	batch    int
	archiver Archiver
	now      func() time.Time
}

func NewSweeper(store repository.Purger, opts Options) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: opts.Interval,
		grace:    opts.Grace,
		batch:    opts.Batch,
		archiver: opts.Archiver,
		now:      opts.Now,
	}
	if s.interval <= 0 {
		s.interval = 10 * time.Minute
	}
	if s.grace < 0 {
		s.grace = 0
	}
	if s.batch <= 0 {
		s.batch = 100
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SweepOnce purges everything that expired before now minus the grace
// period, one batch at a time. It returns how many records were deleted.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.grace)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		recs, err := s.store.ListExpired(ctx, cutoff, s.batch)
		if err != nil {
			return total, fmt.Errorf("list expired: %w", err)
		}
		if len(recs) == 0 {
			return total, nil
		}
		if s.archiver != nil {
			if err := s.archiver.Archive(ctx, recs); err != nil {
				return total, fmt.Errorf("archive: %w", err)
			}
		}
		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		if err := s.store.Delete(ctx, ids); err != nil {
			return total, fmt.Errorf("delete: %w", err)
		}
		total += len(ids)
		metrics.SnippetsPurged.Add(float64(len(ids)))
		log.Debugf("purged %d snippets expired before %s", len(ids), cutoff.Format(time.RFC3339))
		if len(recs) < s.batch {
			return total, nil
		}
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// Failed sweeps are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	log.Infof("sweeper started: interval=%s grace=%s batch=%d archive=%v", s.interval, s.grace, s.batch, s.archiver != nil)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			log.Infof("sweeper stopped")
			return
		case <-t.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil && ctx.Err() == nil {
		log.Warnf("sweep failed after %d deletions: %v", n, err)
		return
	}
	if n > 0 {
		log.Infof("purged %d expired snippets", n)
	}
}
