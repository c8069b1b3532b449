package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-index/internal/database"
	"media-index/internal/logging"
	"media-index/internal/media"
	"media-index/internal/metrics"
	"media-index/internal/repository"
	"media-index/internal/workers"
)

// maxWorkers caps the extraction pool when the count is derived from the CPU.
const maxWorkers = 16

// Mode selects how a build pass treats existing records.
type Mode int

const (
	// ModeUpdate re-extracts new and changed files only and evicts records
	// of files that disappeared.
	ModeUpdate Mode = iota
	// ModeRebuild deletes every record of the repository first.
	ModeRebuild
)

func (m Mode) String() string {
	if m == ModeRebuild {
		return "rebuild"
	}
	return "update"
}

// ParseMode parses "update" or "rebuild". The empty string is update.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "update":
		return ModeUpdate, nil
	case "rebuild":
		return ModeRebuild, nil
	}
	return ModeUpdate, repository.Invalid("mode", s, "must be update or rebuild")
}

// BuildResult reports the outcome of one build pass.
type BuildResult struct {
	RepositoryID      string        `json:"repositoryId"`
	Mode              string        `json:"mode"`
	Seen              int64         `json:"seen"`
	Added             int64         `json:"added"`
	Updated           int64         `json:"updated"`
	Skipped           int64         `json:"skipped"`
	Failed            int64         `json:"failed"`
	Deleted           int64         `json:"deleted"`
	OrphanTagsRemoved int64         `json:"orphanTagsRemoved"`
	Duration          time.Duration `json:"duration"`
}

// Builder reconciles the index with the content of a repository.
type Builder struct {
	db      *database.Database
	workers int

	// seen is updated while a pass runs so progress can be polled.
	seen atomic.Int64

	throttle Throttle

	now  func() time.Time
	seed func() float64
}

// NewBuilder creates a builder writing to db. A worker count of zero or
// less derives the extraction pool size from the CPU count.
func NewBuilder(db *database.Database, workerCount int) *Builder {
	if workerCount <= 0 {
		workerCount = workers.Count(workers.IOBound, maxWorkers)
	}
	return &Builder{
		db:      db,
		workers: workerCount,
		now:     time.Now,
		seed:    rand.Float64,
	}
}

// Throttle holds back extraction workers, e.g. under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// SetThrottle makes every extraction wait on t first. Set it before the
// first Build.
func (b *Builder) SetThrottle(t Throttle) { b.throttle = t }

// Workers returns the size of the extraction pool.
func (b *Builder) Workers() int { return b.workers }

// Seen returns the number of files listed by the running or last pass.
func (b *Builder) Seen() int64 { return b.seen.Load() }

// extractJob is a file whose metadata has to be read.
type extractJob struct {
	file     repository.FileHandle
	existing *database.Record
}

// extraction is the result of an extractJob.
type extraction struct {
	extractJob
	md       *media.Metadata
	err      error
	duration time.Duration
}

// Build runs one pass over adapter. Per-file failures are logged and
// counted. An enumeration failure aborts the pass and is returned, as is
// cancellation of ctx; in both cases no records are evicted.
func (b *Builder) Build(ctx context.Context, adapter repository.Adapter, mode Mode) (BuildResult, error) {
	repoID := adapter.ID()
	runID := uuid.NewString()
	start := time.Now()
	res := BuildResult{RepositoryID: repoID, Mode: mode.String()}

	b.seen.Store(0)
	metrics.IndexerRunsTotal.WithLabelValues(repoID, mode.String()).Inc()
	logging.Info("Build %s: starting %s of repository '%s' with %d workers", runID, mode, repoID, b.workers)

	if err := b.prepare(ctx, repoID, mode, &res); err != nil {
		metrics.IndexerErrors.WithLabelValues(repoID).Inc()
		return res, err
	}

	err := b.populate(ctx, adapter, &res)
	res.Seen = b.seen.Load()
	if err != nil {
		res.Duration = time.Since(start)
		if ctx.Err() != nil {
			logging.Warn("Build %s: cancelled after %d files, sweep skipped", runID, res.Seen)
			return res, ctx.Err()
		}
		metrics.IndexerErrors.WithLabelValues(repoID).Inc()
		logging.Error("Build %s: enumeration of '%s' failed: %v", runID, repoID, err)
		return res, fmt.Errorf("failed to enumerate repository %s: %w", repoID, err)
	}

	if mode == ModeUpdate {
		n, err := b.db.DeleteUnverified(ctx, repoID)
		if err != nil {
			logging.Error("Build %s: failed to delete stale records: %v", runID, err)
		}
		res.Deleted += n
		metrics.IndexerFilesProcessed.WithLabelValues(repoID, "deleted").Add(float64(n))
	}

	if err := b.db.SetLastBuild(ctx, repoID, b.now()); err != nil {
		logging.Warn("Build %s: failed to record build time: %v", runID, err)
	}

	res.Duration = time.Since(start)
	metrics.IndexerLastRunTimestamp.WithLabelValues(repoID).Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.WithLabelValues(repoID).Set(res.Duration.Seconds())

	logging.Info("Build %s: '%s' done in %v: %d seen, %d added, %d updated, %d skipped, %d failed, %d deleted",
		runID, repoID, res.Duration, res.Seen, res.Added, res.Updated, res.Skipped, res.Failed, res.Deleted)
	return res, nil
}

// prepare clears the repository for a rebuild or resets the verified flags
// for an update.
func (b *Builder) prepare(ctx context.Context, repoID string, mode Mode, res *BuildResult) error {
	if mode == ModeUpdate {
		if err := b.db.MarkAllUnverified(ctx, repoID); err != nil {
			return fmt.Errorf("failed to reset verification flags: %w", err)
		}
		return nil
	}

	n, err := b.db.DeleteAll(ctx, repoID)
	if err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	res.Deleted = n
	metrics.IndexerFilesProcessed.WithLabelValues(repoID, "deleted").Add(float64(n))

	tags, err := b.db.DeleteOrphanTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete unused tags: %w", err)
	}
	res.OrphanTagsRemoved = tags
	return nil
}

// populate enumerates the repository and feeds changed files to the
// extraction pool. Every store write happens on the calling goroutine.
func (b *Builder) populate(ctx context.Context, adapter repository.Adapter, res *BuildResult) error {
	jobs := make(chan extractJob, b.workers)
	results := make(chan extraction, b.workers)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if b.throttle != nil {
					if err := b.throttle.Wait(ctx); err != nil {
						results <- extraction{extractJob: job, err: err}
						continue
					}
				}
				results <- extract(ctx, job)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	dispatch := func(job extractJob) error {
		for {
			select {
			case jobs <- job:
				return nil
			case r := <-results:
				b.store(ctx, r, res)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	err := adapter.Enumerate(ctx, func(file repository.FileHandle) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.seen.Add(1)

		existing, err := b.db.Lookup(ctx, file.RepositoryID(), file.FileID())
		switch {
		case database.IsNotFound(err):
			existing = nil
		case err != nil:
			b.fail(file, fmt.Errorf("lookup: %w", err), res)
			return nil
		}

		if existing != nil && upToDate(existing, file) {
			b.skip(ctx, file, res)
			return nil
		}
		return dispatch(extractJob{file: file, existing: existing})
	})

	close(jobs)
	for r := range results {
		b.store(ctx, r, res)
	}
	return err
}

// upToDate reports whether the stored record is at least as new as the
// file. A file without a known modification time is always re-extracted.
func upToDate(rec *database.Record, file repository.FileHandle) bool {
	modified := file.LastModified()
	if modified.IsZero() {
		return false
	}
	return !rec.LastUpdated.Before(modified)
}

func extract(ctx context.Context, job extractJob) extraction {
	if err := ctx.Err(); err != nil {
		return extraction{extractJob: job, err: err}
	}
	// A started file runs to completion; cancellation stops between files.
	start := time.Now()
	md, err := job.file.ExtractMetadata(context.WithoutCancel(ctx))
	elapsed := time.Since(start)
	metrics.IndexerExtractionDuration.WithLabelValues(string(job.file.Kind())).Observe(elapsed.Seconds())
	return extraction{extractJob: job, md: md, err: err, duration: elapsed}
}

func (b *Builder) skip(ctx context.Context, file repository.FileHandle, res *BuildResult) {
	if err := b.db.MarkVerified(ctx, file.RepositoryID(), file.FileID()); err != nil {
		b.fail(file, fmt.Errorf("mark verified: %w", err), res)
		return
	}
	res.Skipped++
	metrics.IndexerFilesProcessed.WithLabelValues(file.RepositoryID(), "skipped").Inc()
	logging.Debug("Skipping '%s', already indexed", file.FileID())
}

// store writes one extraction. A file whose extraction completed is
// written even when ctx was cancelled meanwhile.
func (b *Builder) store(ctx context.Context, r extraction, res *BuildResult) {
	if r.err != nil {
		if errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded) {
			return
		}
		b.fail(r.file, r.err, res)
		// The file is still listed, so keep the record it already has.
		if r.existing != nil && !errors.Is(r.err, repository.ErrNotFound) {
			_ = b.db.MarkVerified(context.WithoutCancel(ctx), r.file.RepositoryID(), r.file.FileID())
		}
		return
	}

	rec := newRecord(r.file, r.md, b.now())
	if r.existing != nil {
		rec.RandomSeed = r.existing.RandomSeed
	} else {
		rec.RandomSeed = b.seed()
	}

	if err := b.db.Upsert(context.WithoutCancel(ctx), rec); err != nil {
		b.fail(r.file, err, res)
		return
	}

	outcome := "added"
	if r.existing != nil {
		outcome = "updated"
		res.Updated++
		logging.Info("Updated metadata of '%s' in %v", r.file.FileID(), r.duration)
	} else {
		res.Added++
		logging.Info("Added metadata of '%s' in %v", r.file.FileID(), r.duration)
	}
	metrics.IndexerFilesProcessed.WithLabelValues(r.file.RepositoryID(), outcome).Inc()
}

func (b *Builder) fail(file repository.FileHandle, err error, res *BuildResult) {
	res.Failed++
	metrics.IndexerFilesProcessed.WithLabelValues(file.RepositoryID(), "failed").Inc()
	if errors.Is(err, repository.ErrNotFound) {
		logging.Warn("File '%s' vanished during indexing: %v", file.FileID(), err)
		return
	}
	logging.Error("Failed to index '%s': %v", file.FileID(), err)
}

// newRecord combines the listing attributes of file with its metadata.
func newRecord(file repository.FileHandle, md *media.Metadata, now time.Time) *database.Record {
	created := md.CreationDate
	if created.IsZero() {
		created = file.LastModified()
	}
	return &database.Record{
		RepositoryID: file.RepositoryID(),
		FileID:       file.FileID(),
		Name:         file.Name(),
		Kind:         file.Kind(),
		Width:        md.Width,
		Height:       md.Height,
		Rotation:     md.Rotation,
		Orientation:  md.Orientation,
		CreationDate: created,
		Description:  md.Description,
		Rating:       md.Rating,
		Latitude:     md.Latitude,
		Longitude:    md.Longitude,
		Altitude:     md.Altitude,
		LastModified: file.LastModified(),
		LastUpdated:  now,
		Verified:     true,
		Tags:         md.Tags,
	}
}
