package execution

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/skillhub/flowcore/pkg/models"
)

// Hub keeps one Tracker per execution so progress events arriving concurrently from the event
// bus are folded into the right run.
type Hub struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
	opts     []TrackerOption
	logger   *slog.Logger
}

// NewHub creates an empty hub. The options are passed to every tracker it creates.
func NewHub(logger *slog.Logger, opts ...TrackerOption) *Hub {
	return &Hub{
		trackers: make(map[string]*Tracker),
		opts:     append([]TrackerOption{WithLogger(logger)}, opts...),
		logger:   logger,
	}
}

// Track starts tracking e and returns its tracker. An already tracked execution keeps its
// existing tracker.
func (h *Hub) Track(e models.Execution) *Tracker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.trackers[e.ID]; ok {
		return t
	}

	t := NewTracker(e, h.opts...)
	h.trackers[e.ID] = t

	h.logger.Debug("tracking execution", "execution_id", e.ID, "workflow_id", e.WorkflowID)

	return t
}

// Get returns the tracker of an execution.
func (h *Hub) Get(id string) (*Tracker, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t, ok := h.trackers[id]

	return t, ok
}

// Forget stops tracking an execution.
func (h *Hub) Forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.trackers, id)
}

// ForgetFinished drops every tracker whose execution reached a terminal state and returns how
// many were dropped.
func (h *Hub) ForgetFinished() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0

	for id, t := range h.trackers {
		if t.Status().Terminal() {
			delete(h.trackers, id)
			dropped++
		}
	}

	return dropped
}

// Snapshots returns the latest state of every tracked execution, optionally limited to one
// workflow, newest first.
func (h *Hub) Snapshots(workflowID string) []models.Execution {
	h.mu.RLock()
	out := make([]models.Execution, 0, len(h.trackers))

	for _, t := range h.trackers {
		snap := t.Snapshot()
		if workflowID == "" || snap.WorkflowID == workflowID {
			out = append(out, snap)
		}
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Execution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// ApplyStep routes a step report to the tracker of its execution.
func (h *Hub) ApplyStep(step models.Step) (models.Execution, error) {
	t, ok := h.Get(step.ExecutionID)
	if !ok {
		return models.Execution{}, fmt.Errorf("%w: %s", ErrUnknownExecution, step.ExecutionID)
	}

	return t.ApplyStep(step)
}

// ApplyExecution routes an execution report to the tracker of its execution.
func (h *Hub) ApplyExecution(update models.Execution) (models.Execution, error) {
	t, ok := h.Get(update.ID)
	if !ok {
		return models.Execution{}, fmt.Errorf("%w: %s", ErrUnknownExecution, update.ID)
	}

	return t.ApplyExecution(update)
}
