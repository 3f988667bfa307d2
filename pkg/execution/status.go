// Package execution tracks workflow runs as the backend reports progress. Every update produces a
// new Execution value; nothing already handed out is modified.
package execution

import (
	"fmt"
	"slices"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
)

// DeriveStatus computes the aggregate status of an execution from its steps. A failed step
// wins over everything, a running step keeps the run going, and the run only completes once
// every step completed and an end node was reached, or the backend reported completion with no
// step still in flight.
func DeriveStatus(e models.Execution) models.Status {
	if hasStep(e, models.StatusFailed) {
		return models.StatusFailed
	}

	if e.Status == models.StatusFailed || e.Status == models.StatusCancelled {
		return e.Status
	}

	if hasStep(e, models.StatusRunning) {
		return models.StatusRunning
	}

	if hasStep(e, models.StatusCancelled) {
		return models.StatusCancelled
	}

	if e.Status == models.StatusCompleted && !hasStep(e, models.StatusPending) {
		return models.StatusCompleted
	}

	if len(e.Steps) > 0 && allSteps(e, models.StatusCompleted) && reachedEnd(e) {
		return models.StatusCompleted
	}

	if hasStep(e, models.StatusCompleted) || e.Status == models.StatusRunning {
		return models.StatusRunning
	}

	return models.StatusPending
}

// DeriveError returns the error message to show for a run: the backend's own message when set,
// otherwise the message of the first failed step.
func DeriveError(e models.Execution) string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}

	for _, step := range e.Steps {
		if step.Status != models.StatusFailed {
			continue
		}

		if step.ErrorMessage == "" {
			return fmt.Sprintf("step %s (%s) failed", step.NodeID, step.NodeType)
		}

		return fmt.Sprintf("step %s (%s): %s", step.NodeID, step.NodeType, step.ErrorMessage)
	}

	return ""
}

// FailedStep returns the first failed step.
func FailedStep(e models.Execution) (models.Step, bool) {
	idx := slices.IndexFunc(e.Steps, func(s models.Step) bool { return s.Status == models.StatusFailed })
	if idx < 0 {
		return models.Step{}, false
	}

	return e.Steps[idx], true
}

// FormatDuration renders the time between start and finish. Without a finish time the duration
// runs up to now and the result is provisional.
func FormatDuration(start time.Time, finish *time.Time) string {
	return FormatDurationAt(start, finish, time.Now())
}

// FormatDurationAt is FormatDuration with an explicit clock. Each unit is truncated, never
// rounded: 1999ms is "1.9s".
func FormatDurationAt(start time.Time, finish *time.Time, now time.Time) string {
	end := now
	if finish != nil {
		end = *finish
	}

	ms := max(end.Sub(start).Milliseconds(), 0)

	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%d.%ds", ms/1000, (ms%1000)/100)
	case ms < 3_600_000:
		return fmt.Sprintf("%dm %ds", ms/60_000, (ms%60_000)/1000)
	default:
		return fmt.Sprintf("%dh %dm", ms/3_600_000, (ms%3_600_000)/60_000)
	}
}

// StepDuration formats a step's duration, or returns "" for a step that never started.
func StepDuration(step models.Step, now time.Time) string {
	if step.StartedAt == nil {
		return ""
	}

	return FormatDurationAt(*step.StartedAt, step.FinishedAt, now)
}

func hasStep(e models.Execution, status models.Status) bool {
	return slices.ContainsFunc(e.Steps, func(s models.Step) bool { return s.Status == status })
}

func allSteps(e models.Execution, status models.Status) bool {
	return !slices.ContainsFunc(e.Steps, func(s models.Step) bool { return s.Status != status })
}

func reachedEnd(e models.Execution) bool {
	return slices.ContainsFunc(e.Steps, func(s models.Step) bool {
		return s.NodeType == models.NodeTypeEnd && s.Status == models.StatusCompleted
	})
}
