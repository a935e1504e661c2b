package web

import (
	"errors"

	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// ValidationProblem is a validation_error problem listing the dangling connections.
type ValidationProblem struct {
	*problems.Problem

	Violations []graph.Violation `json:"violations"`
}

// CycleProblem is a cycle_detected problem listing the nodes left unordered.
type CycleProblem struct {
	*problems.Problem

	NodeIDs []string `json:"nodeIds"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleServiceError maps service and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var (
		validation *persistence.ValidationError
		cycle      *graph.CycleError
	)

	switch {
	case errors.Is(err, persistence.ErrWorkflowNotFound):
		return notFound(c, "workflow_not_found", "workflow not found")

	case errors.Is(err, persistence.ErrAppIntegrationNotFound):
		return notFound(c, "app_not_found", "app integration not found")

	case errors.Is(err, persistence.ErrTemplateNotFound):
		return notFound(c, "template_not_found", "template not found")

	case errors.Is(err, persistence.ErrExecutionLogNotFound):
		return notFound(c, "execution_not_found", "execution log not found")

	case persistence.IsNotFound(err):
		return notFound(c, "not_found", err.Error())

	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(ValidationProblem{
			Problem: problems.NewStatusProblem(fiber.StatusBadRequest).
				WithInstance(c.Path()).
				WithType("validation_error").
				WithDetail(err.Error()),
			Violations: validation.Violations,
		})

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case persistence.IsConflict(err):
		problem := problems.NewStatusProblem(fiber.StatusConflict).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.As(err, &cycle):
		ids := make([]string, len(cycle.NodeIDs))
		for i, id := range cycle.NodeIDs {
			ids[i] = string(id)
		}

		return c.Status(fiber.StatusUnprocessableEntity).JSON(CycleProblem{
			Problem: problems.NewStatusProblem(fiber.StatusUnprocessableEntity).
				WithInstance(c.Path()).
				WithType("cycle_detected").
				WithDetail(err.Error()),
			NodeIDs: ids,
		})

	case persistence.IsMalformedData(err):
		problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("malformed_data").
			WithDetail(err.Error())

		return c.Status(fiber.StatusInternalServerError).JSON(problem)

	case persistence.IsBackingStore(err):
		problem := problems.NewStatusProblem(fiber.StatusBadGateway).
			WithInstance(c.Path()).
			WithType("backing_store_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
