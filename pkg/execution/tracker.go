package execution

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
)

// Tracker holds the current state of one execution. Readers get the latest published snapshot
// without locking; writers are serialized and publish a new snapshot with a single store.
type Tracker struct {
	current         atomic.Pointer[models.Execution]
	cancelRequested atomic.Bool
	mu              sync.Mutex
	now             func() time.Time
	logger          *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the clock used to stamp finish times.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used to report rejected updates.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker starts tracking e. An empty status is treated as pending and the derived fields
// are recomputed from the steps e already carries.
func NewTracker(e models.Execution, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	initial := e.Clone()
	if initial.Status == "" {
		initial.Status = models.StatusPending
	}

	initial = settle(initial, t.now())
	t.current.Store(&initial)

	return t
}

// Snapshot returns a copy of the latest state.
func (t *Tracker) Snapshot() models.Execution {
	return t.current.Load().Clone()
}

// ID returns the tracked execution id.
func (t *Tracker) ID() string {
	return t.current.Load().ID
}

// Status returns the latest aggregate status.
func (t *Tracker) Status() models.Status {
	return t.current.Load().Status
}

// Duration formats the run time so far, or the total once the run finished.
func (t *Tracker) Duration() string {
	e := t.current.Load()

	return FormatDurationAt(e.StartedAt, e.FinishedAt, t.now())
}

// AppendStep records a newly reported step.
func (t *Tracker) AppendStep(step models.Step) (models.Execution, error) {
	return t.update("append_step", func(e models.Execution, now time.Time) (models.Execution, error) {
		return AppendStep(e, step, now)
	})
}

// ApplyStep records a new or changed step.
func (t *Tracker) ApplyStep(step models.Step) (models.Execution, error) {
	return t.update("apply_step", func(e models.Execution, now time.Time) (models.Execution, error) {
		return ApplyStep(e, step, now)
	})
}

// ApplyExecution folds in a full execution report.
func (t *Tracker) ApplyExecution(update models.Execution) (models.Execution, error) {
	return t.update("apply_execution", func(e models.Execution, now time.Time) (models.Execution, error) {
		return ApplyExecution(e, update, now)
	})
}

// RequestCancel records that cancellation was asked for. The status only changes when the
// backend reports the cancellation; until then the run stays as it is. It returns false when
// the run already finished.
func (t *Tracker) RequestCancel() bool {
	if t.current.Load().Status.Terminal() {
		return false
	}

	t.cancelRequested.Store(true)

	return true
}

// CancelRequested reports whether RequestCancel was called on a running execution.
func (t *Tracker) CancelRequested() bool {
	return t.cancelRequested.Load()
}

func (t *Tracker) update(
	op string,
	fn func(models.Execution, time.Time) (models.Execution, error),
) (models.Execution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.current.Load()

	next, err := fn(*current, t.now())
	if err != nil {
		if models.IsTerminalState(err) {
			t.logger.Warn("ignored out of order execution update",
				"op", op,
				"execution_id", current.ID,
				"status", current.Status,
				"error", err)
		}

		return current.Clone(), err
	}

	t.current.Store(&next)

	return next.Clone(), nil
}

// ErrUnknownExecution is returned by the Hub for updates about executions it does not track.
var ErrUnknownExecution = errors.New("execution is not tracked")
