package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/events"
	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/otelhelper"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/variables"
	"github.com/skillhub/flowcore/pkg/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Execution starts runs, tracks their progress and answers queries about them. Live runs are
// held in a Hub; finished runs are read back from persistence.
type Execution struct {
	persistence persistence.Persistence
	runner      Runner
	hub         *execution.Hub
	validate    *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// NewExecution creates the execution service. tracer may be nil.
func NewExecution(
	persistence persistence.Persistence,
	runner Runner,
	hub *execution.Hub,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Execution {
	if tracer == nil {
		tracer = otel.Tracer("flowcore")
	}

	return &Execution{
		persistence: persistence,
		runner:      runner,
		hub:         hub,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:      tracer,
		logger:      logger.With("module", "execution_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// TriggerRequest starts a run. An empty trigger type means manual.
type TriggerRequest struct {
	TriggerType models.TriggerType `json:"trigger_type" validate:"omitempty,oneof=manual scheduled webhook"`
	InputData   map[string]any     `json:"input_data"`
}

// Trigger validates the workflow and hands a new pending execution to the runner. Scheduled and
// webhook runs need an active workflow; manual runs only need a valid graph.
func (s *Execution) Trigger(ctx context.Context, workflowID string, req TriggerRequest) (models.Execution, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "execution.trigger",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.TriggerTypeKey, string(req.TriggerType)))
	defer span.End()

	run, err := s.prepare(ctx, workflowID, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.Execution{}, err
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, run.ID))

	return run, nil
}

func (s *Execution) prepare(ctx context.Context, workflowID string, req TriggerRequest) (models.Execution, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Execution{}, NewValidationError("Trigger", "INVALID_TRIGGER", err.Error(), ErrInvalidRequest)
	}

	if req.TriggerType == "" {
		req.TriggerType = models.TriggerManual
	}

	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return models.Execution{}, err
	}

	if req.TriggerType != models.TriggerManual && !workflow.IsActive {
		return models.Execution{}, &ServiceError{
			Op:      "Trigger",
			Code:    "WORKFLOW_INACTIVE",
			Message: fmt.Sprintf("workflow %s is not active and cannot be triggered by %s", workflowID, req.TriggerType),
			Err:     ErrWorkflowInactive,
		}
	}

	result := ValidateWorkflow(workflow)
	if !result.Valid {
		return models.Execution{}, &GraphError{Op: "Trigger", WorkflowID: workflowID, Result: result}
	}

	input, err := ResolveInput(workflow.Variables, req.InputData)
	if err != nil {
		return models.Execution{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	pending := models.Execution{
		ID:          id.String(),
		WorkflowID:  workflowID,
		TriggerType: req.TriggerType,
		Status:      models.StatusPending,
		InputData:   input,
		StartedAt:   s.now(),
		Steps:       []models.Step{},
	}

	// Track and store before starting so progress reported during Start is never overwritten.
	tracker := s.hub.Track(pending)

	if err := s.persistence.SaveExecution(ctx, pending); err != nil {
		s.hub.Forget(pending.ID)

		return models.Execution{}, fmt.Errorf("failed to save execution: %w", err)
	}

	started, err := s.runner.Start(ctx, workflow, pending.Clone())
	if err != nil {
		s.abandon(ctx, tracker, err)

		return models.Execution{}, err
	}

	if started.Status != models.StatusPending || len(started.Steps) > 0 {
		applied, err := tracker.ApplyExecution(started)
		if err == nil {
			err = s.persistence.SaveExecution(ctx, applied)
		}

		if err != nil && !models.IsTerminalState(err) {
			return models.Execution{}, fmt.Errorf("failed to save execution: %w", err)
		}
	}

	snapshot := tracker.Snapshot()
	if snapshot.Status.Terminal() {
		s.hub.Forget(snapshot.ID)
	}

	s.logger.InfoContext(ctx, "execution triggered",
		"workflow_id", workflowID,
		"execution_id", snapshot.ID,
		"trigger_type", snapshot.TriggerType)

	return snapshot, nil
}

// abandon records a run the backend never accepted as failed.
func (s *Execution) abandon(ctx context.Context, tracker *execution.Tracker, cause error) {
	defer s.hub.Forget(tracker.ID())

	failed, err := tracker.ApplyExecution(models.Execution{
		Status:       models.StatusFailed,
		ErrorMessage: "failed to start: " + cause.Error(),
	})
	if err != nil {
		return
	}

	if err := s.persistence.SaveExecution(ctx, failed); err != nil {
		s.logger.ErrorContext(ctx, "failed to save abandoned execution", "execution_id", failed.ID, "error", err)
	}
}

// ResolveInput seeds the run input with variable defaults, overlays the supplied data and checks
// that required variables are present and declared variables carry values of their type.
func ResolveInput(vars []models.Variable, data map[string]any) (map[string]any, error) {
	input := variables.NewRegistry(vars...).Defaults()
	maps.Copy(input, data)

	var missing, mistyped []string

	for _, v := range vars {
		value, ok := input[v.Name]
		if !ok || value == nil {
			if v.Required {
				missing = append(missing, v.Name)
			}

			continue
		}

		if err := variables.CheckDefault(models.Variable{Name: v.Name, Type: v.Type, DefaultValue: value}); err != nil {
			mistyped = append(mistyped, fmt.Sprintf("%s (want %s)", v.Name, v.Type))
		}
	}

	if len(missing) > 0 {
		return nil, NewValidationError("Trigger", "MISSING_INPUT",
			"missing required input: "+strings.Join(missing, ", "), ErrMissingInput)
	}

	if len(mistyped) > 0 {
		return nil, NewValidationError("Trigger", "INVALID_INPUT",
			"input does not match variable type: "+strings.Join(mistyped, ", "), ErrInvalidRequest)
	}

	return input, nil
}

// Get returns the freshest view of an execution.
func (s *Execution) Get(ctx context.Context, executionID string) (models.Execution, error) {
	if tracker, ok := s.hub.Get(executionID); ok {
		return tracker.Snapshot(), nil
	}

	return s.persistence.ExecutionByID(ctx, executionID)
}

// CancelRequested reports whether a cancel is pending for a live execution.
func (s *Execution) CancelRequested(executionID string) bool {
	tracker, ok := s.hub.Get(executionID)

	return ok && tracker.CancelRequested()
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (s *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]models.Execution, error) {
	if _, err := s.persistence.WorkflowByID(ctx, workflowID); err != nil {
		return nil, err
	}

	stored, err := s.persistence.ExecutionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	byID := make(map[string]models.Execution, len(stored))
	for _, e := range stored {
		byID[e.ID] = e
	}

	for _, live := range s.hub.Snapshots(workflowID) {
		byID[live.ID] = live
	}

	out := slices.Collect(maps.Values(byID))
	persistence.SortExecutions(out)

	return out, nil
}

// Cancel asks the backend to stop a run. The status changes only when the backend confirms.
func (s *Execution) Cancel(ctx context.Context, executionID string) (models.Execution, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "execution.cancel",
		attribute.String(otelhelper.ExecutionIDKey, executionID))
	defer span.End()

	tracker, err := s.tracker(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.Execution{}, err
	}

	if !tracker.RequestCancel() {
		s.hub.Forget(executionID)

		err := &ServiceError{
			Op:      "Cancel",
			Code:    "EXECUTION_FINISHED",
			Message: fmt.Sprintf("execution %s is already %s", executionID, tracker.Status()),
			Err:     ErrExecutionFinished,
		}
		otelhelper.SetError(span, err)

		return models.Execution{}, err
	}

	snapshot := tracker.Snapshot()

	if err := s.runner.Cancel(ctx, snapshot); err != nil {
		otelhelper.SetError(span, err)

		return models.Execution{}, err
	}

	s.logger.InfoContext(ctx, "execution cancel requested", "execution_id", executionID)

	return snapshot, nil
}

// RegisterHandlers subscribes the progress handlers on the event bus.
func (s *Execution) RegisterHandlers(subscriber eventbus.EventSubscriber) error {
	if err := subscriber.Handle(events.StepReportedEvent, s.handleStepReported); err != nil {
		return err
	}

	return subscriber.Handle(events.ExecutionReportedEvent, s.handleExecutionReported)
}

func (s *Execution) handleStepReported(ctx context.Context, event any) error {
	reported, ok := event.(*events.StepReported)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	step, err := wire.ToStep(reported.Step)
	if err != nil {
		s.logger.WarnContext(ctx, "dropped malformed step report", "event_id", reported.ID, "error", err)

		return nil
	}

	return s.ApplyStep(ctx, step)
}

func (s *Execution) handleExecutionReported(ctx context.Context, event any) error {
	reported, ok := event.(*events.ExecutionReported)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	update, err := wire.ToExecution(reported.Execution)
	if err != nil {
		s.logger.WarnContext(ctx, "dropped malformed execution report", "event_id", reported.ID, "error", err)

		return nil
	}

	return s.ApplyExecution(ctx, update)
}

// ApplyStep folds one step report into its execution and stores the result. Reports that
// arrive after the step or the execution finished are logged and dropped.
func (s *Execution) ApplyStep(ctx context.Context, step models.Step) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "execution.apply_step",
		attribute.String(otelhelper.ExecutionIDKey, step.ExecutionID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.NodeIDKey, step.NodeID))
	defer span.End()

	tracker, err := s.tracker(ctx, step.ExecutionID)
	if err != nil {
		if IsNotFoundError(err) {
			s.logger.WarnContext(ctx, "dropped step report for unknown execution",
				"execution_id", step.ExecutionID, "step_id", step.ID)

			return nil
		}

		otelhelper.SetError(span, err)

		return err
	}

	snapshot, err := tracker.ApplyStep(step)

	return s.settle(ctx, span, snapshot, err)
}

// ApplyExecution folds a whole execution report in and stores the result.
func (s *Execution) ApplyExecution(ctx context.Context, update models.Execution) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "execution.apply_execution",
		attribute.String(otelhelper.ExecutionIDKey, update.ID),
		attribute.String(otelhelper.WorkflowIDKey, update.WorkflowID))
	defer span.End()

	tracker, err := s.tracker(ctx, update.ID)
	if err != nil {
		if IsNotFoundError(err) {
			s.logger.WarnContext(ctx, "dropped report for unknown execution",
				"execution_id", update.ID, "workflow_id", update.WorkflowID)

			return nil
		}

		otelhelper.SetError(span, err)

		return err
	}

	snapshot, err := tracker.ApplyExecution(update)

	return s.settle(ctx, span, snapshot, err)
}

func (s *Execution) settle(ctx context.Context, span trace.Span, snapshot models.Execution, err error) error {
	if err != nil {
		if models.IsTerminalState(err) {
			if snapshot.Status.Terminal() {
				s.hub.Forget(snapshot.ID)
			}

			return nil
		}

		otelhelper.SetError(span, err)

		return err
	}

	if err := s.persistence.SaveExecution(ctx, snapshot); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to save execution: %w", err)
	}

	if snapshot.Status.Terminal() {
		s.hub.Forget(snapshot.ID)
		s.logger.InfoContext(ctx, "execution finished",
			"execution_id", snapshot.ID,
			"status", snapshot.Status,
			"duration", execution.FormatDuration(snapshot.StartedAt, snapshot.FinishedAt))
	}

	return nil
}

// tracker returns the live tracker of an execution, loading it from persistence when the
// process has not seen it yet.
func (s *Execution) tracker(ctx context.Context, executionID string) (*execution.Tracker, error) {
	if tracker, ok := s.hub.Get(executionID); ok {
		return tracker, nil
	}

	stored, err := s.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			return nil, fmt.Errorf("%w: %s", execution.ErrUnknownExecution, executionID)
		}

		return nil, err
	}

	return s.hub.Track(stored), nil
}
