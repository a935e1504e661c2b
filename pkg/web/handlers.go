// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	catalogService  *services.Catalog
	activityService *services.Activity
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	catalogService *services.Catalog,
	activityService *services.Activity,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		catalogService:  catalogService,
		activityService: activityService,
		validator:       validator,
	}
}

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/toggle", h.ToggleWorkflow)
	w.Get("/:id/order", h.GetTopologicalOrder)
	w.Get("/:id/nodes/:nodeId/neighbors", h.GetNeighbors)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	a := router.Group("/apps")
	a.Get("/", h.GetApps)
	a.Get("/search", h.SearchApps)
	a.Get("/:id", h.GetApp)

	t := router.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Get("/popular", h.GetPopularTemplates)
	t.Get("/:id", h.GetTemplate)
	t.Post("/:id/use", h.UseTemplate)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/recent", h.GetRecentExecutions)
	e.Get("/:id", h.GetExecution)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowdeck API is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if ok {
		status = "healthy"
		message = "Flowdeck API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), services.ListWorkflowsRequest{
		Query:  c.Query("q"),
		Status: c.Query("status"),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowListResponse{
		Workflows:  workflows,
		TotalCount: len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Draft())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), id, req.Update())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = h.workflowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ToggleWorkflow(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.ToggleActive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetTopologicalOrder(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	nodes, err := h.workflowService.TopologicalOrder(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NodeListResponse{Nodes: nodes})
}

func (h *APIHandlers) GetNeighbors(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	nodeID := c.Params("nodeId")
	if nodeID == "" {
		return badRequest(c, "Node ID is required")
	}

	nodes, err := h.workflowService.Neighbors(c.Context(), id, models.NodeID(nodeID), c.Query("direction"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NodeListResponse{Nodes: nodes})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	logs, err := h.workflowService.Executions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionLogListResponse{Logs: logs})
}

func parseID(c fiber.Ctx) (int64, error) {
	value := c.Params("id")
	if value == "" {
		return 0, services.NewValidationError("parseID", "invalid_id", "id is required", services.ErrInvalidRequest)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("parseID", "invalid_id", "id must be a positive integer", services.ErrInvalidRequest)
	}

	return id, nil
}

// parseLimit reads the limit query parameter. Missing means zero, the repository default.
func parseLimit(c fiber.Ctx) (int, error) {
	value := c.Query("limit")
	if value == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, services.NewValidationError("parseLimit", "invalid_limit", "limit must be an integer", services.ErrInvalidLimit)
	}

	return limit, nil
}
