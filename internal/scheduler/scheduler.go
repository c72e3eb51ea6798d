// Package scheduler runs the gateway's housekeeping jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name    string
	Cron    string
	LastRun time.Time
	Runs    int
	LastErr string
}

type job struct {
	name    string
	cron    *CronExpr
	fn      JobFunc
	lastRun time.Time
	runs    int
	lastErr error
}

// Scheduler checks its jobs once a minute and runs those whose schedule
// matches. Jobs run one at a time, each at most once per matching minute.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Scheduler {
	return &Scheduler{jobs: make(map[string]*job)}
}

// Add registers fn under name. A schedule of "" or "off" leaves the job
// disabled and is not an error.
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	if schedule == "" || schedule == "off" {
		slog.Info("scheduler: job disabled", "job", name)
		return nil
	}
	expr, err := ParseCron(schedule)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("add job %s: already registered", name)
	}
	s.jobs[name] = &job{name: name, cron: expr, fn: fn}
	slog.Info("scheduler: registered job", "job", name, "cron", schedule)
	return nil
}

// Start begins the minute loop. Jobs receive a context derived from ctx
// that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	slog.Info("scheduler started", "jobs", len(s.Entries()))
	go s.cronLoop()
}

// Stop halts the loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("scheduler stopped")
}

// Entries returns a snapshot of the registered jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := Entry{Name: j.name, Cron: j.cron.String(), LastRun: j.lastRun, Runs: j.runs}
		if j.lastErr != nil {
			e.LastErr = j.lastErr.Error()
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, k int) bool { return result[i].Name < result[k].Name })
	return result
}

// RunNow runs the named job immediately, regardless of its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	return s.run(ctx, j, "manual", time.Now())
}

func (s *Scheduler) cronLoop() {
	defer close(s.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.checkCron(s.ctx, now)
		}
	}
}

// checkCron runs every job whose schedule matches now and that has not
// already run within the same minute.
func (s *Scheduler) checkCron(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.cron.Matches(now) {
			continue
		}
		if now.Truncate(time.Minute).Equal(j.lastRun.Truncate(time.Minute)) {
			continue
		}
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, j, "cron", now)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job, trigger string, now time.Time) error {
	start := time.Now()
	err := j.fn(ctx)

	s.mu.Lock()
	j.lastRun = now
	j.runs++
	j.lastErr = err
	s.mu.Unlock()

	if err != nil {
		slog.Error("scheduler: job failed", "job", j.name, "trigger", trigger, "error", err)
		return err
	}
	slog.Debug("scheduler: job done", "job", j.name, "trigger", trigger, "duration", time.Since(start))
	return nil
}
