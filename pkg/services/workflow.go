package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/events"
	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/otelhelper"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/validation"
	"github.com/skillhub/flowcore/pkg/variables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Workflow owns workflow documents: metadata, the graph, the variables and activation.
type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger

	// mu serializes read-modify-write cycles on workflow documents.
	mu sync.Mutex
}

// NewWorkflow creates a new workflow service. publisher and tracer may be nil.
func NewWorkflow(
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Workflow {
	if tracer == nil {
		tracer = otel.Tracer("flowcore")
	}

	return &Workflow{
		persistence: persistence,
		publisher:   publisher,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:      tracer,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	// Pagination
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	// Filtering
	ActiveOnly bool

	// Sorting
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("ListWorkflows", "INVALID_PAGINATION", err.Error(), ErrInvalidRequest)
	}

	if req.Limit == 0 {
		req.Limit = 20
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	all, err := w.persistence.Workflows(ctx, persistence.ListWorkflowsOptions{
		ActiveOnly: req.ActiveOnly,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		if persistence.IsInvalidSort(err) {
			return nil, NewValidationError("ListWorkflows", "INVALID_SORT", err.Error(), err)
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	total := len(all)
	start := min(req.Offset, total)
	end := min(start+req.Limit, total)

	return &ListWorkflowsResponse{
		Workflows:   all[start:end],
		TotalCount:  int64(total),
		HasNextPage: end < total,
	}, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// CreateWorkflowRequest describes a new workflow. Without a definition the workflow starts
// with the default start and end nodes.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"        validate:"required,min=3"`
	Description string             `json:"description"`
	Schedule    string             `json:"schedule"`
	Definition  *models.Definition `json:"definition"`
	Variables   []models.Variable  `json:"variables"   validate:"dive"`
}

// Create adds a new, inactive workflow.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.create",
		attribute.String(otelhelper.WorkflowNameKey, req.Name))
	defer span.End()

	workflow, err := w.build("Create", req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	workflow.ID = uuid.NewString()
	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, workflow.ID))

	err = w.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID, "name", workflow.Name)
	w.notifySaved(ctx, workflow)

	return workflow, nil
}

func (w *Workflow) build(op string, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError(op, "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	if err := models.ValidateSchedule(req.Schedule); err != nil {
		return nil, NewValidationError(op, "INVALID_SCHEDULE", err.Error(), err)
	}

	g := graph.New()

	if req.Definition != nil {
		var err error

		g, err = graph.FromDefinition(*req.Definition)
		if err != nil {
			return nil, err
		}
	}

	registry := variables.NewRegistry()

	for _, v := range req.Variables {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}

		if err := registry.Declare(v); err != nil {
			return nil, err
		}
	}

	return &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
		Definition:  g.Definition(),
		Variables:   registry.List(),
	}, nil
}

// UpdateWorkflowRequest changes workflow metadata. Nil fields are left alone.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=3"`
	Description *string `json:"description"`
	Schedule    *string `json:"schedule"`
}

// Update modifies the metadata of an existing workflow.
func (w *Workflow) Update(ctx context.Context, workflowID string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("Update", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	if req.Schedule != nil {
		if err := models.ValidateSchedule(*req.Schedule); err != nil {
			return nil, NewValidationError("Update", "INVALID_SCHEDULE", err.Error(), err)
		}
	}

	return w.edit(ctx, "workflow.update", workflowID, func(wf *models.Workflow, _ *graph.Graph, _ *variables.Registry) error {
		if req.Name != nil {
			wf.Name = *req.Name
		}

		if req.Description != nil {
			wf.Description = *req.Description
		}

		if req.Schedule != nil {
			wf.Schedule = *req.Schedule
		}

		return nil
	})
}

// ReplaceDefinition swaps the whole graph, as the editor does when it saves the canvas.
// Structural rules still apply; semantic findings are left to Validate.
func (w *Workflow) ReplaceDefinition(ctx context.Context, workflowID string, def models.Definition) (*models.Workflow, error) {
	next, err := graph.FromDefinition(def)
	if err != nil {
		return nil, err
	}

	return w.edit(ctx, "workflow.replace_definition", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		*g = *next

		return nil
	})
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.delete",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	err := w.persistence.DeleteWorkflow(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	w.logger.InfoContext(ctx, "workflow deleted", "workflow_id", workflowID)
	w.publish(ctx, workflowID, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, workflowID),
	})

	return nil
}

// Validate runs every graph and variable check on the stored workflow.
func (w *Workflow) Validate(ctx context.Context, workflowID string) (validation.Result, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return validation.Result{}, err
	}

	return ValidateWorkflow(workflow), nil
}

// ValidateWorkflow validates a workflow document. A definition that cannot even be loaded as a
// graph is reported as a single finding.
func ValidateWorkflow(workflow *models.Workflow) validation.Result {
	g, err := graph.FromDefinition(workflow.Definition)
	if err != nil {
		return validation.Result{
			Valid: false,
			Errors: []validation.ValidationError{{
				Code:    validation.CodeInvalidDefinition,
				Message: err.Error(),
			}},
		}
	}

	return validation.Validate(g, variables.NewRegistry(workflow.Variables...))
}

// Activate marks a workflow runnable by schedules and webhooks. Only a valid graph can be
// activated.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.edit(ctx, "workflow.activate", workflowID, func(wf *models.Workflow, _ *graph.Graph, _ *variables.Registry) error {
		result := ValidateWorkflow(wf)
		if !result.Valid {
			return &GraphError{Op: "Activate", WorkflowID: wf.ID, Result: result}
		}

		wf.IsActive = true

		return nil
	})
}

// Deactivate stops scheduled and webhook runs of a workflow. Manual runs stay possible.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.edit(ctx, "workflow.deactivate", workflowID, func(wf *models.Workflow, _ *graph.Graph, _ *variables.Registry) error {
		wf.IsActive = false

		return nil
	})
}

// NextRun returns when a scheduled workflow is next due, or nil.
func (w *Workflow) NextRun(workflow *models.Workflow, now time.Time) *time.Time {
	if !workflow.IsActive {
		return nil
	}

	return models.NextRun(workflow.Schedule, now)
}

type editFunc func(workflow *models.Workflow, g *graph.Graph, registry *variables.Registry) error

// edit loads a workflow, lets fn change it through the graph and the variable registry, and
// saves the result. Nothing is saved when fn fails.
func (w *Workflow) edit(ctx context.Context, op, workflowID string, fn editFunc) (*models.Workflow, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, op,
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	g, err := graph.FromDefinition(workflow.Definition)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("stored workflow %s cannot be loaded: %w", workflowID, err)
	}

	registry := variables.NewRegistry(workflow.Variables...)

	if err := fn(workflow, g, registry); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	workflow.Definition = g.Definition()
	workflow.Variables = registry.List()

	err = w.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.DebugContext(ctx, "workflow saved", "op", op, "workflow_id", workflowID)
	w.notifySaved(ctx, workflow)

	return workflow, nil
}

func (w *Workflow) notifySaved(ctx context.Context, workflow *models.Workflow) {
	w.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID),
		Name:      workflow.Name,
		IsActive:  workflow.IsActive,
	})
}

// publish sends a notification. The change is already stored, so failures are only logged.
func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.Publish(ctx, key, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish workflow event",
			"event_type", event.GetType(), "workflow_id", key, "error", err)
	}
}
