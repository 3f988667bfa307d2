package execution

import (
	"time"

	"github.com/skillhub/flowcore/pkg/models"
)

// AppendStep adds a step reported for the first time. A step id that is already present is a
// duplicate delivery and leaves the execution unchanged. Steps cannot be added to a finished
// execution.
func AppendStep(e models.Execution, step models.Step, now time.Time) (models.Execution, error) {
	if e.Status.Terminal() {
		return e, terminalExecution(e, step.Status)
	}

	if e.StepIndex(step.ID) >= 0 {
		return e, nil
	}

	out := e.Clone()
	out.Steps = append(out.Steps, adopt(e, step))

	return settle(out, now), nil
}

// ApplyStep replaces the step with the same id, or appends it when it is new. A step that
// already finished, or an update that moves a step backwards, is rejected.
func ApplyStep(e models.Execution, step models.Step, now time.Time) (models.Execution, error) {
	idx := e.StepIndex(step.ID)
	if idx < 0 {
		return AppendStep(e, step, now)
	}

	if e.Status.Terminal() {
		return e, terminalExecution(e, step.Status)
	}

	current := e.Steps[idx]
	if err := checkTransition("step", current.ID, current.Status, step.Status); err != nil {
		return e, err
	}

	out := e.Clone()
	out.Steps[idx] = adopt(e, step)

	return settle(out, now), nil
}

// ApplyExecution folds a full execution report from the backend into e. Reported steps replace
// local ones by id and new ones are appended in reported order; local steps the report omits
// are kept.
func ApplyExecution(e, update models.Execution, now time.Time) (models.Execution, error) {
	if e.Status.Terminal() {
		return e, terminalExecution(e, update.Status)
	}

	if update.Status != "" {
		if err := checkTransition("execution", e.ID, e.Status, update.Status); err != nil {
			return e, err
		}
	}

	out := e.Clone()

	if update.Status != "" {
		out.Status = update.Status
	}

	if update.OutputData != nil {
		out.OutputData = update.Clone().OutputData
	}

	if update.FinishedAt != nil {
		finished := *update.FinishedAt
		out.FinishedAt = &finished
	}

	if update.ErrorMessage != "" {
		out.ErrorMessage = update.ErrorMessage
	}

	for _, step := range update.Steps {
		if idx := out.StepIndex(step.ID); idx >= 0 {
			// the backend report is authoritative for steps it includes
			out.Steps[idx] = adopt(out, step)
		} else {
			out.Steps = append(out.Steps, adopt(out, step))
		}
	}

	return settle(out, now), nil
}

// Cancel marks a run as cancelled. It is used once the backend confirms a cancellation.
func Cancel(e models.Execution, now time.Time) (models.Execution, error) {
	return ApplyExecution(e, models.Execution{Status: models.StatusCancelled}, now)
}

// settle recomputes the derived fields after a change.
func settle(e models.Execution, now time.Time) models.Execution {
	e.Status = DeriveStatus(e)

	if e.Status.Terminal() && e.FinishedAt == nil {
		finished := lastFinish(e, now)
		e.FinishedAt = &finished
	}

	if e.Status == models.StatusFailed {
		e.ErrorMessage = DeriveError(e)
	}

	return e
}

func lastFinish(e models.Execution, now time.Time) time.Time {
	var latest time.Time

	for _, step := range e.Steps {
		if step.FinishedAt != nil && step.FinishedAt.After(latest) {
			latest = *step.FinishedAt
		}
	}

	if latest.IsZero() {
		return now
	}

	return latest
}

func adopt(e models.Execution, step models.Step) models.Step {
	out := step.Clone()
	if out.ExecutionID == "" {
		out.ExecutionID = e.ID
	}

	if out.Status == "" {
		out.Status = models.StatusPending
	}

	return out
}

func checkTransition(kind, id string, from, to models.Status) error {
	if from == "" {
		return nil
	}

	if from.Terminal() {
		return &models.TerminalStateError{Kind: kind, ID: id, Status: from, Next: to, Err: models.ErrTerminalState}
	}

	if from.Precedes(to) {
		return &models.TerminalStateError{Kind: kind, ID: id, Status: from, Next: to, Err: models.ErrInvalidTransition}
	}

	return nil
}

func terminalExecution(e models.Execution, next models.Status) error {
	return &models.TerminalStateError{
		Kind:   "execution",
		ID:     e.ID,
		Status: e.Status,
		Next:   next,
		Err:    models.ErrTerminalState,
	}
}
