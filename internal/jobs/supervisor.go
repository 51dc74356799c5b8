// Package jobs owns the at-most-one-running-job policy: starting,
// stopping with bounded waits, and routing prompt answers to the active
// job.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/collect"
	"github.com/ternarybob/colligo/internal/telegram"
)

const (
	// DefaultPreemptWait bounds the wait for an old job when a new one starts
	DefaultPreemptWait = 3 * time.Second
	// DefaultStopWait bounds the wait on an explicit stop before forced termination
	DefaultStopWait = 5 * time.Second

	eventBuffer = 64
)

// Options configure the supervisor
type Options struct {
	PreemptWait time.Duration
	StopWait    time.Duration
	Runner      collect.Options
}

// Job is the caller-facing handle of one running job
type Job struct {
	ID      string
	events  chan interfaces.ProgressEvent
	outcome chan collect.Outcome
}

// Events returns the ordered progress event stream. The channel closes
// once the job reaches its terminal outcome cooperatively; a forcibly
// terminated job leaves the stream open, so consumers must also watch
// Outcome.
func (j *Job) Events() <-chan interfaces.ProgressEvent {
	return j.events
}

// Outcome delivers the single terminal outcome
func (j *Job) Outcome() <-chan collect.Outcome {
	return j.outcome
}

// activeJob tracks the supervisor-side state of the running worker
type activeJob struct {
	job        *Job
	runner     *collect.Runner
	cancel     context.CancelFunc
	done       chan struct{}
	detached   chan struct{}
	detachOnce sync.Once
}

// detach abandons the worker: late events are discarded and the caller
// receives a Cancelled outcome immediately.
func (a *activeJob) detach() {
	a.detachOnce.Do(func() {
		close(a.detached)
		select {
		case a.job.outcome <- collect.Cancelled():
		default:
		}
	})
}

func (a *activeJob) finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// chanSink bridges runner emissions onto the job's event channel. Once
// the job is detached, emissions are discarded so an abandoned worker
// can never block or reach the caller.
type chanSink struct {
	events   chan<- interfaces.ProgressEvent
	detached <-chan struct{}
}

func (s *chanSink) Emit(event interfaces.ProgressEvent) {
	select {
	case <-s.detached:
		return
	default:
	}
	select {
	case s.events <- event:
	case <-s.detached:
	}
}

// Supervisor holds zero or one active job
type Supervisor struct {
	sessions *telegram.SessionStore
	history  interfaces.HistoryStorage // nil disables the audit trail
	logger   arbor.ILogger
	opts     Options

	mu     sync.Mutex
	active *activeJob
}

// NewSupervisor creates a supervisor
func NewSupervisor(sessions *telegram.SessionStore, history interfaces.HistoryStorage, logger arbor.ILogger, opts Options) *Supervisor {
	if opts.PreemptWait <= 0 {
		opts.PreemptWait = DefaultPreemptWait
	}
	if opts.StopWait <= 0 {
		opts.StopWait = DefaultStopWait
	}
	return &Supervisor{
		sessions: sessions,
		history:  history,
		logger:   logger,
		opts:     opts,
	}
}

// Start launches a new job worker. A still-running job is asked to stop
// first with a bounded, non-enforcing wait: if it overruns the window it
// keeps running detached until it observes cancellation, so two workers
// can briefly overlap.
func (s *Supervisor) Start(cfg collect.JobConfig) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && !s.active.finished() {
		s.logger.Warn().Str("job_id", s.active.job.ID).Msg("Stopping previous job before start")
		s.active.cancel()
		select {
		case <-s.active.done:
		case <-time.After(s.opts.PreemptWait):
			s.logger.Warn().Str("job_id", s.active.job.ID).Msg("Previous job did not stop within preempt window, continuing")
		}
		s.active.detach()
	}
	s.active = nil

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:      common.NewJobID(),
		events:  make(chan interfaces.ProgressEvent, eventBuffer),
		outcome: make(chan collect.Outcome, 1),
	}
	detached := make(chan struct{})
	sink := &chanSink{events: job.events, detached: detached}

	a := &activeJob{
		job:      job,
		runner:   collect.NewRunner(cfg, s.sessions, sink, s.logger, s.opts.Runner),
		cancel:   cancel,
		done:     make(chan struct{}),
		detached: detached,
	}
	s.active = a

	s.logger.Info().
		Str("job_id", job.ID).
		Str("mode", string(cfg.Mode)).
		Int("limit", cfg.Limit).
		Msg("Starting collection job")

	go s.run(ctx, a, cfg)
	return job, nil
}

// run executes the job worker and delivers the terminal outcome
func (s *Supervisor) run(ctx context.Context, a *activeJob, cfg collect.JobConfig) {
	defer close(a.done)

	startedAt := time.Now()
	outcome := a.runner.Run(ctx)
	s.recordHistory(a.job.ID, cfg, startedAt, outcome)

	select {
	case <-a.detached:
		// The supervisor already delivered Cancelled; discard
		return
	default:
	}

	// Terminal outcome: close the event stream first so no further
	// progress events are observable after the outcome.
	close(a.job.events)
	select {
	case a.job.outcome <- outcome:
	default:
	}

	s.logger.Info().
		Str("job_id", a.job.ID).
		Str("status", string(outcome.Status)).
		Int("records", len(outcome.Records)).
		Msg("Job finished")
}

// Stop requests cooperative cancellation of the active job, waits up to
// the bounded stop window, then escalates to forced termination.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()

	if a == nil || a.finished() {
		return
	}

	s.logger.Info().Str("job_id", a.job.ID).Msg("Stopping job")
	a.cancel()

	select {
	case <-a.done:
	case <-time.After(s.opts.StopWait):
		s.logger.Warn().Str("job_id", a.job.ID).Msg("Job did not stop within bounded wait, forcing termination")
		a.detach()
	}

	s.mu.Lock()
	if s.active == a {
		s.active = nil
	}
	s.mu.Unlock()
}

// Supply routes a prompt answer to the active job's authentication flow
func (s *Supervisor) Supply(input string) {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()

	if a == nil || a.finished() {
		s.logger.Warn().Msg("Prompt answer ignored: no active job")
		return
	}
	a.runner.Supply(input)
}

// Status reports "running" or "idle"
func (s *Supervisor) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && !s.active.finished() {
		return "running"
	}
	return "idle"
}

// recordHistory persists the terminal outcome. Persistence failures never
// fail the job.
func (s *Supervisor) recordHistory(jobID string, cfg collect.JobConfig, startedAt time.Time, outcome collect.Outcome) {
	if s.history == nil {
		return
	}

	entry := &interfaces.JobHistory{
		ID:          jobID,
		Mode:        string(cfg.Mode),
		Link:        cfg.Link,
		Status:      string(outcome.Status),
		Title:       outcome.Title,
		RecordCount: len(outcome.Records),
		Error:       outcome.Reason,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.SaveHistory(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record job history")
	}
}
