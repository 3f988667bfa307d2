// Package web provides HTTP handlers and REST API endpoints for workflow editing and runs.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/services"
	"github.com/skillhub/flowcore/pkg/wire"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	validator        *validator.Validate
	now              func() time.Time
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		validator:        validator,
		now:              time.Now,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Put("/:id/definition", h.ReplaceDefinition)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)
	w.Get("/:id/validation", h.ValidateWorkflow)

	w.Post("/:id/nodes", h.CreateNode)
	w.Patch("/:id/nodes/:nodeId", h.UpdateNode)
	w.Delete("/:id/nodes/:nodeId", h.DeleteNode)
	w.Post("/:id/nodes/:nodeId/preview", h.PreviewNode)

	w.Post("/:id/edges", h.CreateEdge)
	w.Delete("/:id/edges/:edgeId", h.DeleteEdge)

	w.Post("/:id/variables", h.CreateVariable)
	w.Patch("/:id/variables/:variableId", h.UpdateVariable)
	w.Delete("/:id/variables/:variableId", h.DeleteVariable)

	w.Post("/:id/executions", h.TriggerExecution)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	router.Post("/webhooks/:id", h.ReceiveWebhook)

	e := router.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/cancel", h.CancelExecution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "flowcore API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "flowcore API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": h.now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.ListWorkflows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	workflows := make([]WorkflowResponse, 0, len(result.Workflows))
	for _, workflow := range result.Workflows {
		workflows = append(workflows, h.workflowResponse(workflow))
	}

	return c.JSON(fiber.Map{
		"workflows":     workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

func parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.ActiveOnly = active
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	create := services.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
		Variables:   wire.ToVariables(req.Variables),
	}

	if req.Definition != nil {
		def, err := wire.ToDefinition(*req.Definition)
		if err != nil {
			return badRequest(c, err.Error())
		}

		create.Definition = &def
	}

	created, err := h.workflowService.Create(c.Context(), create)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.workflowResponse(created))
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(workflow))
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), services.UpdateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(updated))
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ReplaceDefinition swaps the whole graph, as the editor does on save.
func (h *APIHandlers) ReplaceDefinition(c fiber.Ctx) error {
	var req wire.Definition
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	def, err := wire.ToDefinition(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.ReplaceDefinition(c.Context(), c.Params("id"), def)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(updated))
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	activated, err := h.workflowService.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(activated))
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	deactivated, err := h.workflowService.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(deactivated))
}

// ValidateWorkflow reports findings without changing anything. An invalid graph is still a 200.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	result, err := h.workflowService.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	var req wire.Node
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := wire.ToNode(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	added, err := h.workflowService.AddNode(c.Context(), c.Params("id"), node)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wire.FromNode(added))
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflowID, nodeID := c.Params("id"), c.Params("nodeId")
	patch := models.NodePatch{Label: req.Label, Description: req.Description}

	if req.Data != nil {
		workflow, err := h.workflowService.FetchByID(c.Context(), workflowID)
		if err != nil {
			return handleServiceError(c, err)
		}

		for _, existing := range workflow.Definition.Nodes {
			if existing.ID != nodeID {
				continue
			}

			payload, err := wire.ToNode(wire.Node{ID: nodeID, Type: string(existing.Type), Data: *req.Data})
			if err != nil {
				return badRequest(c, err.Error())
			}

			patch.Skill = payload.Skill
			patch.Condition = payload.Condition
			patch.Transform = payload.Transform
		}
	}

	updated, err := h.workflowService.UpdateNode(c.Context(), workflowID, nodeID, patch)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wire.FromNode(updated))
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	if err := h.workflowService.RemoveNode(c.Context(), c.Params("id"), c.Params("nodeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewNode evaluates a condition or transform node against a sample input.
func (h *APIHandlers) PreviewNode(c fiber.Ctx) error {
	var req PreviewRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	preview, err := h.workflowService.PreviewNode(c.Context(), c.Params("id"), c.Params("nodeId"), req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(preview)
}

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	var req wire.Edge
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	added, err := h.workflowService.AddEdge(c.Context(), c.Params("id"), models.Edge(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wire.Edge(added))
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	if err := h.workflowService.RemoveEdge(c.Context(), c.Params("id"), c.Params("edgeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateVariable(c fiber.Ctx) error {
	var req wire.Variable
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	declared, err := h.workflowService.DeclareVariable(c.Context(), c.Params("id"), wire.ToVariables([]wire.Variable{req})[0])
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wire.FromVariables([]models.Variable{declared})[0])
}

func (h *APIHandlers) UpdateVariable(c fiber.Ctx) error {
	var req UpdateVariableRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.UpdateVariable(c.Context(), c.Params("id"), c.Params("variableId"), req.patch())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wire.FromVariables([]models.Variable{updated})[0])
}

func (h *APIHandlers) DeleteVariable(c fiber.Ctx) error {
	if err := h.workflowService.RemoveVariable(c.Context(), c.Params("id"), c.Params("variableId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerExecution hands a new run to the backend. The body is optional for workflows whose
// variables all have defaults.
func (h *APIHandlers) TriggerExecution(c fiber.Ctx) error {
	var req wire.TriggerRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	run, err := h.executionService.Trigger(c.Context(), c.Params("id"), services.TriggerRequest{
		TriggerType: models.TriggerType(req.TriggerType),
		InputData:   req.InputData,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(newExecutionResponse(run, false, h.now()))
}

// ReceiveWebhook starts a webhook-triggered run with the JSON body as its input. The workflow
// must be active.
func (h *APIHandlers) ReceiveWebhook(c fiber.Ctx) error {
	input := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&input); err != nil {
			return badRequest(c, "Webhook payload must be a JSON object")
		}
	}

	run, err := h.executionService.Trigger(c.Context(), c.Params("id"), services.TriggerRequest{
		TriggerType: models.TriggerWebhook,
		InputData:   input,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": run.ID,
		"status":       run.Status,
	})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	list, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	now := h.now()
	out := make([]ExecutionResponse, 0, len(list))

	for _, e := range list {
		out = append(out, newExecutionResponse(e, h.executionService.CancelRequested(e.ID), now))
	}

	return c.JSON(fiber.Map{
		"executions":  out,
		"total_count": len(out),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")

	run, err := h.executionService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(newExecutionResponse(run, h.executionService.CancelRequested(id), h.now()))
}

// CancelExecution records the request and forwards it. The status flips once the backend
// confirms, so the response is 202.
func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	run, err := h.executionService.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(newExecutionResponse(run, true, h.now()))
}

func (h *APIHandlers) workflowResponse(workflow *models.Workflow) WorkflowResponse {
	return WorkflowResponse{
		Workflow: wire.FromWorkflow(workflow),
		NextRun:  h.workflowService.NextRun(workflow, h.now()),
	}
}
