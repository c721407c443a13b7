// FILE: internal/controller/serving_controller.go
package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/assembler"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/serverutils"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/valuestore"
)

// IServingController is the online path consumed by the scoring services
// (fraud, surge pricing, churn, recommendations).
type IServingController interface {
	RegisterRoutes(r fiber.Router)
	GetFeatures(ctx *fiber.Ctx) error
	SetFeatureValue(ctx *fiber.Ctx) error
	GetModelVector(ctx *fiber.Ctx) error
}

type servingController struct {
	values    valuestore.IValueStore
	assembler assembler.IAssembler
	validate  *validator.Validate
}

func NewServingController(values valuestore.IValueStore, asm assembler.IAssembler) IServingController {
	return &servingController{
		values:    values,
		assembler: asm,
		validate:  validator.New(),
	}
}

func (c *servingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/serving")
	h.Post("/get-features", c.GetFeatures)
	h.Post("/values", c.SetFeatureValue)
	h.Post("/model-vector", c.GetModelVector)
}

func (c *servingController) GetFeatures(ctx *fiber.Ctx) error {
	var req dto.GetFeaturesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.values.GetFeatures(ctx.Context(), &req)
	if err != nil {
		return writeServingError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *servingController) SetFeatureValue(ctx *fiber.Ctx) error {
	var req dto.SetFeatureValueRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.values.SetFeatureValue(ctx.Context(), &req); err != nil {
		return writeServingError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *servingController) GetModelVector(ctx *fiber.Ctx) error {
	var req dto.ModelVectorRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.assembler.GetFeatureVectorForModel(ctx.Context(), &req)
	if err != nil {
		return writeServingError(ctx, err)
	}
	return ctx.JSON(res)
}

func writeServingError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, entity.ErrUnknownFeature):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case entity.IsValidation(err):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(serverutils.ErrorResponse(422, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
