// Package trash permanently removes versions that have been trashed for
// longer than the retention window. A version's blob is always deleted
// before its row; a version whose blob delete fails stays trashed and is
// retried on the next run.
package trash

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/libris/pkg/storage"
)

// System defines the reclamation contract.
type System interface {
	Handler() *Handler
	// Run reclaims every eligible version. Runs are serialized; a caller
	// waits for an in-flight run to finish or for ctx to end.
	Run(ctx context.Context) (Report, error)
	// Candidates lists up to limit versions the next run would reclaim.
	Candidates(ctx context.Context, limit int) ([]Candidate, error)
}

// Options configures the worker.
type Options struct {
	Retention   time.Duration
	Concurrency int
	BatchSize   int
	Now         func() time.Time
}

type worker struct {
	store  Store
	blobs  storage.System
	opts   Options
	sem    chan struct{}
	logger *slog.Logger
}

// New creates the reclamation worker.
func New(store Store, blobs storage.System, opts Options, logger *slog.Logger) System {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &worker{
		store:  store,
		blobs:  blobs,
		opts:   opts,
		sem:    make(chan struct{}, 1),
		logger: logger.With("system", "trash"),
	}
}

func (w *worker) Handler() *Handler {
	return NewHandler(w, w.logger)
}

func (w *worker) cutoff() time.Time {
	return w.opts.Now().Add(-w.opts.Retention)
}

func (w *worker) Candidates(ctx context.Context, limit int) ([]Candidate, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return w.store.Candidates(ctx, w.cutoff(), limit)
}

func (w *worker) Run(ctx context.Context) (Report, error) {
	select {
	case w.sem <- struct{}{}:
		defer func() { <-w.sem }()
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}

	start := time.Now()
	report := Report{
		Cutoff:    w.cutoff(),
		Reclaimed: []int64{},
		Failed:    []int64{},
	}

	var after int64
	for {
		batch, failed, err := w.reclaimBatch(ctx, report.Cutoff, after)
		report.Candidates += len(batch.Candidates)
		report.Failed = append(report.Failed, failed...)
		if err != nil {
			report.Duration = time.Since(start)
			w.logger.Error("reclamation run failed", "cutoff", report.Cutoff, "error", err)
			return report, err
		}
		report.Reclaimed = append(report.Reclaimed, batch.Deleted...)

		if len(batch.Candidates) < w.opts.BatchSize {
			break
		}
		after = batch.Candidates[len(batch.Candidates)-1].ID
	}

	report.Duration = time.Since(start)
	if report.Candidates == 0 {
		w.logger.Info("no trashed versions past retention", "cutoff", report.Cutoff)
		return report, nil
	}

	w.logger.Info(
		"reclamation complete",
		"cutoff", report.Cutoff,
		"candidates", report.Candidates,
		"reclaimed", len(report.Reclaimed),
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	return report, nil
}

func (w *worker) reclaimBatch(ctx context.Context, cutoff time.Time, after int64) (Batch, []int64, error) {
	var failed []int64
	batch, err := w.store.Reclaim(ctx, cutoff, after, w.opts.BatchSize, func(ctx context.Context, cs []Candidate) []int64 {
		var purged []int64
		purged, failed = w.purge(ctx, cs)
		return purged
	})
	return batch, failed, err
}

// purge deletes the blobs of cs with bounded concurrency. Failures are
// logged per item and never abort the batch.
func (w *worker) purge(ctx context.Context, cs []Candidate) (purged, failed []int64) {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)

	for _, c := range cs {
		if c.File == pending || c.File == "" {
			mu.Lock()
			purged = append(purged, c.ID)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			err := w.blobs.Delete(ctx, c.File)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, c.ID)
				w.logger.Warn(
					"blob delete failed, version kept for next run",
					"version_id", c.ID,
					"key", c.File,
					"error", err,
				)
				return nil
			}
			purged = append(purged, c.ID)
			return nil
		})
	}

	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	slices.Sort(purged)
	slices.Sort(failed)
	return purged, failed
}

// IsCanceled reports whether err ended a run because its context ended.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
