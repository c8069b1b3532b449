package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"media-index/internal/logging"
	"media-index/internal/metrics"
	"media-index/internal/repository"
)

// Minimum files to index before marking the service as ready
const minFilesForReady = 100

// ErrIndexInProgress is returned by TriggerIndex while a pass is running.
var ErrIndexInProgress = errors.New("index already in progress")

// Schedule tells when a queued repository is indexed again. With neither
// field set, the repository is indexed once.
type Schedule struct {
	// Interval between the end of a pass and the start of the next.
	Interval time.Duration

	// At is a daily "HH:MM" local time. It takes precedence over Interval.
	At string
}

// Validate checks the At format.
func (s Schedule) Validate() error {
	if s.Interval < 0 {
		return repository.Invalid("index_update_interval", s.Interval, "must not be negative")
	}
	if s.At == "" {
		return nil
	}
	if _, err := time.Parse("15:04", s.At); err != nil {
		return repository.Invalid("index_update_at", s.At, "must be HH:MM")
	}
	return nil
}

// Next returns the start of the pass following one that ended at last.
// It returns the zero time when no further pass is due.
func (s Schedule) Next(last time.Time) time.Time {
	if s.At != "" {
		at, err := time.Parse("15:04", s.At)
		if err != nil {
			return time.Time{}
		}
		next := time.Date(last.Year(), last.Month(), last.Day(), at.Hour(), at.Minute(), 0, 0, last.Location())
		if !next.After(last) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
	if s.Interval > 0 {
		return last.Add(s.Interval)
	}
	return time.Time{}
}

func (s Schedule) String() string {
	switch {
	case s.At != "":
		return "daily at " + s.At
	case s.Interval > 0:
		return "every " + s.Interval.String()
	}
	return "once"
}

// queued is a repository waiting in the background queue.
type queued struct {
	adapter  repository.Adapter
	schedule Schedule
	next     time.Time
}

// IndexProgress tracks the current indexing progress
type IndexProgress struct {
	Repository   string    `json:"repository,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	FilesIndexed int64     `json:"filesIndexed"`
	IsIndexing   bool      `json:"isIndexing"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool                   `json:"ready"`
	Indexing          bool                   `json:"indexing"`
	StartTime         time.Time              `json:"startTime"`
	Uptime            string                 `json:"uptime"`
	LastIndexed       time.Time              `json:"lastIndexed,omitempty"`
	InitialIndexError string                 `json:"initialIndexError,omitempty"`
	FilesIndexed      int64                  `json:"filesIndexed"`
	IndexProgress     *IndexProgress         `json:"indexProgress,omitempty"`
	LastResults       map[string]BuildResult `json:"lastResults,omitempty"`
}

// Scheduler runs build passes in the background for queued repositories
// and on demand.
type Scheduler struct {
	builder  *Builder
	registry *repository.Registry

	queueMu sync.Mutex
	queue   []*queued

	// runMu serializes passes so the index has a single writer.
	runMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time
	lastResults          map[string]BuildResult

	filesIndexed  atomic.Int64
	indexProgress atomic.Value

	onIndexComplete func(BuildResult)
	now             func() time.Time
}

// NewScheduler creates a scheduler running builder over repositories of
// registry.
func NewScheduler(builder *Builder, registry *repository.Registry) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		builder:     builder,
		registry:    registry,
		ctx:         ctx,
		cancel:      cancel,
		stopChan:    make(chan struct{}),
		startTime:   time.Now(),
		lastResults: make(map[string]BuildResult),
		now:         time.Now,
	}
	s.indexProgress.Store(IndexProgress{})
	return s
}

// SetOnIndexComplete sets a callback invoked after every successful pass.
func (s *Scheduler) SetOnIndexComplete(callback func(BuildResult)) {
	s.onIndexComplete = callback
}

// Queue adds a repository to the background queue. Repositories must be
// queued before Start.
func (s *Scheduler) Queue(adapter repository.Adapter, schedule Schedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	logging.Info("Queuing repository '%s' for indexing (%s)", adapter.ID(), schedule)

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.queue = append(s.queue, &queued{adapter: adapter, schedule: schedule})
	return nil
}

// Queued returns the ids of the repositories still in the queue.
func (s *Scheduler) Queued() []string {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	ids := make([]string, 0, len(s.queue))
	for _, q := range s.queue {
		ids = append(ids, q.adapter.ID())
	}
	return ids
}

// Start begins background indexing. Every queued repository is indexed
// once right away.
func (s *Scheduler) Start() error {
	now := s.now()
	s.queueMu.Lock()
	for _, q := range s.queue {
		q.next = now
	}
	s.queueMu.Unlock()

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the running pass and waits for it to return. Files already
// handed to an extraction worker are finished and written.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.cancel()
	})
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	logging.Info("Starting to build the metadata index in the background")

	first := true
	for {
		s.runDue()
		if first {
			first = false
			s.indexMu.Lock()
			s.initialIndexComplete = true
			s.indexMu.Unlock()
		}

		next, ok := s.nextDue()
		if !ok {
			logging.Info("Background index queue is empty")
			<-s.stopChan
			return
		}

		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		logging.Info("Next background index run is due at %s", next.Format(time.RFC1123))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.stopChan:
			timer.Stop()
			logging.Info("Background indexing stopped")
			return
		}
	}
}

// runDue indexes every queued repository whose next run has come, then
// reschedules or drops it.
func (s *Scheduler) runDue() {
	s.queueMu.Lock()
	var due []*queued
	now := s.now()
	for _, q := range s.queue {
		if !q.next.After(now) {
			due = append(due, q)
		}
	}
	s.queueMu.Unlock()

	for _, q := range due {
		if s.ctx.Err() != nil {
			return
		}

		res, err := s.run(q.adapter, ModeUpdate)
		if err != nil {
			logging.Error("Indexing of repository '%s' failed: %v", q.adapter.ID(), err)
			s.indexMu.Lock()
			if !s.initialIndexComplete && s.initialIndexError == nil {
				s.initialIndexError = err
			}
			s.indexMu.Unlock()
		} else {
			logging.Info("Indexing of repository '%s' completed after %v", q.adapter.ID(), res.Duration.Round(time.Millisecond))
		}

		end := s.now()
		s.queueMu.Lock()
		q.next = q.schedule.Next(end)
		if q.next.IsZero() {
			logging.Info("Removing repository '%s' from the index queue", q.adapter.ID())
			s.remove(q)
		}
		s.queueMu.Unlock()
	}
}

// remove drops q from the queue. queueMu must be held.
func (s *Scheduler) remove(q *queued) {
	for i, other := range s.queue {
		if other == q {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) nextDue() (time.Time, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	var next time.Time
	for _, q := range s.queue {
		if next.IsZero() || q.next.Before(next) {
			next = q.next
		}
	}
	return next, len(s.queue) > 0
}

// run performs one pass and records its outcome for health reporting.
func (s *Scheduler) run(adapter repository.Adapter, mode Mode) (BuildResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	startTime := time.Now()
	s.startIndexing()
	defer s.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)

	s.indexProgress.Store(IndexProgress{
		Repository: adapter.ID(),
		Mode:       mode.String(),
		IsIndexing: true,
		StartedAt:  startTime,
	})

	res, err := s.builder.Build(s.ctx, adapter, mode)
	s.filesIndexed.Add(res.Seen)

	s.indexProgress.Store(IndexProgress{
		Repository:   adapter.ID(),
		Mode:         mode.String(),
		FilesIndexed: res.Seen,
	})

	if err != nil {
		return res, err
	}

	s.indexMu.Lock()
	s.lastIndexTime = time.Now()
	s.lastResults[adapter.ID()] = res
	s.indexMu.Unlock()

	if s.onIndexComplete != nil {
		s.onIndexComplete(res)
	}
	return res, nil
}

func (s *Scheduler) startIndexing() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.isIndexing = true
}

func (s *Scheduler) finishIndexing() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.isIndexing = false
}

// Index runs passes over the given repositories, or all registered ones
// when ids is empty, and waits for them. It stops at the first error.
func (s *Scheduler) Index(mode Mode, ids ...string) ([]BuildResult, error) {
	adapters, err := s.adapters(ids)
	if err != nil {
		return nil, err
	}

	results := make([]BuildResult, 0, len(adapters))
	for _, a := range adapters {
		res, err := s.run(a, mode)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// TriggerIndex starts Index in the background. Unknown repository ids are
// rejected before anything runs.
func (s *Scheduler) TriggerIndex(mode Mode, ids ...string) error {
	if _, err := s.adapters(ids); err != nil {
		return err
	}
	if s.IsIndexing() {
		return ErrIndexInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Index(mode, ids...); err != nil {
			logging.Error("manually triggered %s failed: %v", mode, err)
		}
	}()
	return nil
}

func (s *Scheduler) adapters(ids []string) ([]repository.Adapter, error) {
	if len(ids) == 0 {
		return s.registry.All(), nil
	}
	adapters := make([]repository.Adapter, 0, len(ids))
	for _, id := range ids {
		a, err := s.registry.Get(id)
		if err != nil {
			return nil, fmt.Errorf("cannot index: %w", err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// IsIndexing returns whether an index operation is currently in progress.
func (s *Scheduler) IsIndexing() bool {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.isIndexing
}

// IsReady returns true once the initial queue run is done or enough files
// have been indexed.
func (s *Scheduler) IsReady() bool {
	if s.filesIndexed.Load() >= minFilesForReady {
		return true
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.initialIndexComplete
}

// LastIndexTime returns the time of the last completed index operation.
func (s *Scheduler) LastIndexTime() time.Time {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.lastIndexTime
}

// GetProgress returns the current indexing progress.
func (s *Scheduler) GetProgress() IndexProgress {
	progress, _ := s.indexProgress.Load().(IndexProgress)
	if progress.IsIndexing {
		progress.FilesIndexed = s.builder.Seen()
	}
	return progress
}

// GetHealthStatus returns detailed health information.
func (s *Scheduler) GetHealthStatus() HealthStatus {
	progress := s.GetProgress()

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	status := HealthStatus{
		Ready:        s.initialIndexComplete || s.filesIndexed.Load() >= minFilesForReady,
		Indexing:     s.isIndexing,
		StartTime:    s.startTime,
		Uptime:       time.Since(s.startTime).String(),
		LastIndexed:  s.lastIndexTime,
		FilesIndexed: s.filesIndexed.Load(),
	}

	if s.isIndexing {
		status.IndexProgress = &progress
	}
	if s.initialIndexError != nil {
		status.InitialIndexError = s.initialIndexError.Error()
	}
	if len(s.lastResults) > 0 {
		status.LastResults = make(map[string]BuildResult, len(s.lastResults))
		for id, res := range s.lastResults {
			status.LastResults[id] = res
		}
	}
	return status
}
