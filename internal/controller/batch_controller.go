// FILE: internal/controller/batch_controller.go
package controller

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/serverutils"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/scheduler"
)

// IBatchController triggers batch computation on demand, outside the cadence
// timers. Used by backfills and operational reruns.
type IBatchController interface {
	RegisterRoutes(r fiber.Router, guards ...fiber.Handler)
	RunBatch(ctx *fiber.Ctx) error
}

// RunBatchRequest names the features to recompute. EntityIds may be empty, in
// which case the warehouse enumerates the entities.
type RunBatchRequest struct {
	FeatureNames []string `json:"feature_names" validate:"required,min=1"`
	EntityIds    []string `json:"entity_ids,omitempty"`
}

type batchController struct {
	scheduler scheduler.IScheduler
	validate  *validator.Validate
}

func NewBatchController(sched scheduler.IScheduler) IBatchController {
	return &batchController{
		scheduler: sched,
		validate:  validator.New(),
	}
}

func (c *batchController) RegisterRoutes(r fiber.Router, guards ...fiber.Handler) {
	h := r.Group("/batch", guards...)
	h.Post("/run", c.RunBatch)
}

func (c *batchController) RunBatch(ctx *fiber.Ctx) error {
	var req RunBatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	result := c.scheduler.RunBatchComputation(ctx.Context(), req.FeatureNames, req.EntityIds)
	return ctx.JSON(result)
}
