// Package scheduler runs named background tasks on fixed intervals, such as
// the overdue quest sweep and the leaderboard refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/cache"
	"github.com/kasuganosora/hearthquest/metrics"
)

// TaskFn is the function signature for scheduled tasks. The context is
// cancelled when the scheduler stops.
type TaskFn func(ctx context.Context) error

// ErrUnknownTask is returned by RunNow for a name that was never registered.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// Status is a snapshot of one task's run history.
type Status struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

// Scheduler manages periodic and delayed tasks.
type Scheduler struct {
	mu       sync.Mutex
	tickers  map[string]*tickerEntry
	timers   map[string]*time.Timer
	logger   *zap.Logger
	ctx      context.Context
	stop     context.CancelFunc
	locker   cache.Cache
	instance string
}

type tickerEntry struct {
	fn       TaskFn
	ticker   *time.Ticker
	stopCh   chan struct{}
	runMu    sync.Mutex // serialises runs of one task
	statusMu sync.Mutex
	status   Status
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		tickers:  make(map[string]*tickerEntry),
		timers:   make(map[string]*time.Timer),
		logger:   logger,
		ctx:      ctx,
		stop:     stop,
		instance: uuid.NewString(),
	}
}

// UseLock makes ticker runs take a per-task lease in c first, so that when
// several instances share a Redis only one of them runs each tick.
func (s *Scheduler) UseLock(c cache.Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locker = c
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		fn:     fn,
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
		status: Status{Name: name, Interval: interval},
	}
	s.tickers[name] = entry

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				if s.acquire(name, interval) {
					_ = s.run(name, entry)
				}
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.ctx.Done():
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// acquire takes the lease for one tick. Without a locker every tick runs.
func (s *Scheduler) acquire(name string, interval time.Duration) bool {
	s.mu.Lock()
	locker := s.locker
	s.mu.Unlock()
	if locker == nil {
		return true
	}
	ok, err := locker.SetNX(s.ctx, "scheduler:lock:"+name, s.instance, interval)
	if err != nil {
		s.logger.Warn("scheduler lock failed", zap.String("task", name), zap.Error(err))
		return false
	}
	if !ok {
		metrics.SchedulerRuns.WithLabelValues(name, "skipped").Inc()
	}
	return ok
}

// run executes one invocation of entry, recovering panics and recording
// the outcome.
func (s *Scheduler) run(name string, entry *tickerEntry) (err error) {
	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: task %s panicked: %v", name, r)
			outcome = "panic"
		} else if err != nil {
			outcome = "error"
		}
		metrics.SchedulerRuns.WithLabelValues(name, outcome).Inc()

		entry.statusMu.Lock()
		entry.status.Runs++
		entry.status.LastRun = start
		entry.status.LastDuration = time.Since(start)
		entry.status.LastError = ""
		if err != nil {
			entry.status.Failures++
			entry.status.LastError = err.Error()
		}
		entry.statusMu.Unlock()

		if err != nil {
			s.logger.Error("scheduler task failed", zap.String("task", name), zap.Error(err))
		}
	}()
	return entry.fn(s.ctx)
}

// RunNow runs a registered ticker task immediately on the calling goroutine,
// bypassing the lease, and returns its error.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	entry, ok := s.tickers[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(name, entry)
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("delay task panicked",
					zap.String("task", name), zap.Any("recover", r))
			}
			s.mu.Lock()
			if s.timers[name] == t {
				delete(s.timers, name)
			}
			s.mu.Unlock()
		}()
		if err := fn(s.ctx); err != nil {
			s.logger.Error("delay task failed", zap.String("task", name), zap.Error(err))
		}
	})
	s.timers[name] = t
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all tasks and cancels the context of running ones.
func (s *Scheduler) Stop() {
	s.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// ListTickers returns the names of all registered ticker tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Statuses returns the run history of every ticker task, sorted by name.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	entries := make([]*tickerEntry, 0, len(s.tickers))
	for _, e := range s.tickers {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		e.statusMu.Lock()
		out = append(out, e.status)
		e.statusMu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
