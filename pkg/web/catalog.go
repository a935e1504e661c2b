package web

import (
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetApps(c fiber.Ctx) error {
	listing, err := h.catalogService.ListApps(c.Context(), c.Query("q"), c.Query("category"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(listing)
}

func (h *APIHandlers) SearchApps(c fiber.Ctx) error {
	apps, err := h.catalogService.SearchApps(c.Context(), c.Query("q"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"apps": apps})
}

func (h *APIHandlers) GetApp(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.catalogService.GetApp(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	listing, err := h.catalogService.ListTemplates(c.Context(), c.Query("q"), c.Query("category"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(listing)
}

func (h *APIHandlers) GetPopularTemplates(c fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	templates, err := h.catalogService.PopularTemplates(c.Context(), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.catalogService.GetTemplate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

// UseTemplate creates a workflow from the template and answers with the new workflow.
func (h *APIHandlers) UseTemplate(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.catalogService.UseTemplate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	listing, err := h.activityService.List(c.Context(), c.Query("q"), c.Query("status"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(listing)
}

func (h *APIHandlers) GetRecentExecutions(c fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	logs, err := h.activityService.Recent(c.Context(), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionLogListResponse{Logs: logs})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	log, err := h.activityService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(log)
}
