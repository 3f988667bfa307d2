package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a workflow schedule is not a valid cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// scheduleParser accepts the standard 5-field cron format (minute hour day month weekday).
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a cron expression. An empty expression means "not scheduled".
func ValidateSchedule(expression string) error {
	if expression == "" {
		return nil
	}

	if _, err := scheduleParser.Parse(expression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	return nil
}

// NextRun returns the next time the schedule fires after reference, or nil when the workflow is
// not scheduled or the expression is invalid.
func NextRun(expression string, reference time.Time) *time.Time {
	if expression == "" {
		return nil
	}

	schedule, err := scheduleParser.Parse(expression)
	if err != nil {
		return nil
	}

	next := schedule.Next(reference)

	return &next
}
