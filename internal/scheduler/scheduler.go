// Package scheduler implements the per-adapter poll loop described in
// spec.md §4.3: staggered starts, single-flight per source, exponential
// backoff, and a manual-poll path that shares the same state machine.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/metrics"
	"github.com/samskrta/review-image/internal/pipeline"
	"github.com/samskrta/review-image/internal/review"
)

// Store is the subset of internal/store.Store the scheduler needs.
type Store interface {
	GetCursor(source string) string
	SetCursor(source, token string)
	SetLastPollTime(source string)
}

// Adapter is the subset of internal/source.Adapter the scheduler drives.
type Adapter interface {
	Name() string
	Enabled() bool
	Fetch(ctx context.Context, cursor string) ([]review.Record, string, error)
}

// Registry is the subset of internal/source.Registry the scheduler needs.
type Registry interface {
	Get(name string) (Adapter, bool)
	Names() []string
}

// Processor is the subset of internal/pipeline.Pipeline the scheduler
// feeds fetched records into.
type Processor interface {
	Process(ctx context.Context, records []review.Record) pipeline.Summary
}

const (
	minBaseInterval = 15 * time.Minute
	maxBackoff      = 2 * time.Hour
	stagger         = 5 * time.Second
)

// PollResult is the outcome of one PollOnce call.
type PollResult struct {
	Skipped bool
	Summary pipeline.Summary
}

// Scheduler drives per-adapter polling with staggered starts and backoff.
type Scheduler struct {
	registry Registry
	store    Store
	process  Processor

	globalInterval time.Duration
	pollInterval   map[string]time.Duration

	sf singleflight.Group

	mu       sync.Mutex
	busy     map[string]bool
	failures map[string]int
	timers   map[string]*time.Timer
	stopped  bool
}

// New builds a Scheduler. globalInterval is the configured poll interval
// floor; per-source overrides come from pollInterval (may be nil).
func New(registry Registry, store Store, process Processor, globalInterval time.Duration, pollInterval map[string]time.Duration) *Scheduler {
	if pollInterval == nil {
		pollInterval = make(map[string]time.Duration)
	}
	return &Scheduler{
		registry:       registry,
		store:          store,
		process:        process,
		globalInterval: globalInterval,
		pollInterval:   pollInterval,
		busy:           make(map[string]bool),
		failures:       make(map[string]int),
		timers:         make(map[string]*time.Timer),
	}
}

// Start schedules the first poll for every enabled adapter, staggered by
// 5s per adapter index, and arms each adapter's recurring timer.
func (s *Scheduler) Start(ctx context.Context) {
	names := s.registry.Names()
	for i, name := range names {
		a, ok := s.registry.Get(name)
		if !ok || !a.Enabled() {
			continue
		}
		delay := time.Duration(i) * stagger
		s.armTimer(ctx, name, delay)
	}
}

// Stop cancels every pending timer. The store's own debounced flush is
// the caller's responsibility to drain via Store.Shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
}

func (s *Scheduler) armTimer(ctx context.Context, source string, delay time.Duration) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	t := time.AfterFunc(delay, func() {
		_, _ = s.PollOnce(ctx, source)
		s.mu.Lock()
		stopped := s.stopped
		failures := s.failures[source]
		s.mu.Unlock()
		if !stopped {
			s.armTimer(ctx, source, s.effectiveInterval(source, failures))
		}
	})
	s.timers[source] = t
	s.mu.Unlock()
}

func (s *Scheduler) baseInterval(source string) time.Duration {
	base := s.globalInterval
	if override, ok := s.pollInterval[source]; ok && override > base {
		base = override
	}
	if base < minBaseInterval {
		base = minBaseInterval
	}
	return base
}

func (s *Scheduler) effectiveInterval(source string, failures int) time.Duration {
	base := s.baseInterval(source)
	backoff := base * time.Duration(1<<uint(failures))
	if backoff > maxBackoff || backoff <= 0 {
		return maxBackoff
	}
	return backoff
}

// PollOnce implements the poll_once(source) contract from spec.md §4.3.
// Manual poll endpoints call this directly, bypassing the scheduler's
// interval but sharing the same lock and backoff state.
func (s *Scheduler) PollOnce(ctx context.Context, source string) (PollResult, error) {
	a, ok := s.registry.Get(source)
	if !ok || !a.Enabled() {
		return PollResult{}, apperr.New(apperr.NotFound, fmt.Sprintf("source %q not found or disabled", source))
	}

	s.mu.Lock()
	if s.busy[source] {
		s.mu.Unlock()
		metrics.PollTotal.WithLabelValues(source, "skipped").Inc()
		return PollResult{Skipped: true}, nil
	}
	s.busy[source] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy[source] = false
		s.mu.Unlock()
	}()

	// singleflight.Do is a second guard behind the busy-flag gate above.
	// The gate's check and set run under one lock, so no second caller for
	// the same source reaches this point while a poll is in flight.
	v, err, _ := s.sf.Do(source, func() (interface{}, error) {
		return s.doPoll(ctx, a, source)
	})
	if err != nil {
		s.mu.Lock()
		s.failures[source]++
		s.mu.Unlock()
		metrics.PollTotal.WithLabelValues(source, "failure").Inc()
		return PollResult{}, err
	}

	s.mu.Lock()
	s.failures[source] = 0
	s.mu.Unlock()
	metrics.PollTotal.WithLabelValues(source, "success").Inc()

	return PollResult{Summary: v.(pipeline.Summary)}, nil
}

func (s *Scheduler) doPoll(ctx context.Context, a Adapter, source string) (pipeline.Summary, error) {
	cursor := s.store.GetCursor(source)

	records, newCursor, err := a.Fetch(ctx, cursor)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("scheduler: fetch %q: %w", source, err)
	}

	if newCursor != cursor {
		s.store.SetCursor(source, newCursor)
	}
	s.store.SetLastPollTime(source)

	return s.process.Process(ctx, records), nil
}
