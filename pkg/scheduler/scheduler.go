// Package scheduler triggers active workflows whose cron schedule is due.
//
// A single poller checks every active workflow on each tick, whatever its own cron expression.
// A workflow is first scheduled from the moment it is seen, so enabling a schedule never fires
// a backlog of missed runs.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/services"
)

const defaultInterval = time.Minute

// WorkflowLister is the part of the persistence layer the scheduler reads.
type WorkflowLister interface {
	Workflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error)
}

// Triggerer starts a run.
type Triggerer interface {
	Trigger(ctx context.Context, workflowID string, req services.TriggerRequest) (models.Execution, error)
}

type due struct {
	schedule string
	at       time.Time
}

type Scheduler struct {
	workflows WorkflowLister
	trigger   Triggerer
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	due     map[string]due
	ticker  *time.Ticker
	done    chan struct{}
	started bool
}

type Option func(*Scheduler)

// WithInterval sets how often due schedules are checked.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(workflows WorkflowLister, trigger Triggerer, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		workflows: workflows,
		trigger:   trigger,
		logger:    logger.With("module", "scheduler"),
		interval:  defaultInterval,
		now:       func() time.Time { return time.Now().UTC() },
		due:       map[string]due{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins polling in the background until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	s.started = true

	go s.poll(ctx, s.ticker, s.done)

	s.logger.InfoContext(ctx, "Scheduler started", "interval", s.interval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.ticker.Stop()
	close(s.done)
	s.started = false

	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) poll(ctx context.Context, ticker *time.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick triggers every workflow whose schedule is due and returns how many runs were started.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()

	workflows, err := s.workflows.Workflows(ctx, persistence.ListWorkflowsOptions{ActiveOnly: true})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list scheduled workflows", "error", err)

		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(workflows))
	started := 0

	for _, workflow := range workflows {
		if workflow.Schedule == "" {
			continue
		}

		seen[workflow.ID] = true

		entry, ok := s.due[workflow.ID]
		if !ok || entry.schedule != workflow.Schedule {
			s.reschedule(ctx, workflow, now)

			continue
		}

		if now.Before(entry.at) {
			continue
		}

		if s.fire(ctx, workflow) {
			started++
		}

		// A failed run is not retried before the next due time.
		s.reschedule(ctx, workflow, now)
	}

	for id := range s.due {
		if !seen[id] {
			delete(s.due, id)
		}
	}

	return started
}

// NextDue returns when a workflow is next due, as the scheduler currently sees it.
func (s *Scheduler) NextDue(workflowID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.due[workflowID]

	return entry.at, ok
}

func (s *Scheduler) reschedule(ctx context.Context, workflow *models.Workflow, now time.Time) {
	next := models.NextRun(workflow.Schedule, now)
	if next == nil {
		s.logger.WarnContext(ctx, "Workflow has an invalid schedule",
			"workflow_id", workflow.ID,
			"schedule", workflow.Schedule)
		delete(s.due, workflow.ID)

		return
	}

	s.due[workflow.ID] = due{schedule: workflow.Schedule, at: *next}
}

func (s *Scheduler) fire(ctx context.Context, workflow *models.Workflow) bool {
	run, err := s.trigger.Trigger(ctx, workflow.ID, services.TriggerRequest{TriggerType: models.TriggerScheduled})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to trigger scheduled workflow",
			"workflow_id", workflow.ID,
			"error", err)

		return false
	}

	s.logger.InfoContext(ctx, "Triggered scheduled workflow",
		"workflow_id", workflow.ID,
		"execution_id", run.ID)

	return true
}
