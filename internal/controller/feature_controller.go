// FILE: internal/controller/feature_controller.go
package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/serverutils"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
)

// IFeatureController exposes the registry control plane.
type IFeatureController interface {
	RegisterRoutes(r fiber.Router, guards ...fiber.Handler)
	CreateFeature(ctx *fiber.Ctx) error
	GetFeature(ctx *fiber.Ctx) error
	ListFeatures(ctx *fiber.Ctx) error
	DeprecateFeature(ctx *fiber.Ctx) error
	CreateFeatureGroup(ctx *fiber.Ctx) error
	GetFeatureGroup(ctx *fiber.Ctx) error
}

type featureController struct {
	registry registry.IRegistry
	validate *validator.Validate
}

func NewFeatureController(reg registry.IRegistry) IFeatureController {
	return &featureController{
		registry: reg,
		validate: validator.New(),
	}
}

func (c *featureController) RegisterRoutes(r fiber.Router, guards ...fiber.Handler) {
	h := r.Group("/features", guards...)
	h.Post("/", c.CreateFeature)
	h.Get("/", c.ListFeatures)
	h.Get("/:name", c.GetFeature)
	h.Delete("/:name", c.DeprecateFeature)

	g := r.Group("/feature-groups", guards...)
	g.Post("/", c.CreateFeatureGroup)
	g.Get("/:name", c.GetFeatureGroup)
}

func (c *featureController) CreateFeature(ctx *fiber.Ctx) error {
	var req dto.CreateFeatureRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	def, err := c.registry.CreateFeature(ctx.Context(), &req)
	if err != nil {
		return writeRegistryError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(def)
}

func (c *featureController) GetFeature(ctx *fiber.Ctx) error {
	def, err := c.registry.GetFeatureDefinition(ctx.Context(), ctx.Params("name"))
	if err != nil {
		return writeRegistryError(ctx, err)
	}
	if def == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "feature not found"))
	}
	return ctx.JSON(def)
}

func (c *featureController) ListFeatures(ctx *fiber.Ctx) error {
	var entityType *entity.EntityType
	if raw := ctx.Query("entity_type", ""); raw != "" {
		et := entity.EntityType(raw)
		entityType = &et
	}

	defs, err := c.registry.ListFeatures(ctx.Context(), entityType)
	if err != nil {
		return writeRegistryError(ctx, err)
	}
	return ctx.JSON(defs)
}

func (c *featureController) DeprecateFeature(ctx *fiber.Ctx) error {
	if err := c.registry.DeprecateFeature(ctx.Context(), ctx.Params("name")); err != nil {
		return writeRegistryError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *featureController) CreateFeatureGroup(ctx *fiber.Ctx) error {
	var req dto.CreateFeatureGroupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	group, err := c.registry.CreateFeatureGroup(ctx.Context(), &req)
	if err != nil {
		return writeRegistryError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(group)
}

func (c *featureController) GetFeatureGroup(ctx *fiber.Ctx) error {
	group, err := c.registry.GetFeatureGroup(ctx.Context(), ctx.Params("name"))
	if err != nil {
		return writeRegistryError(ctx, err)
	}
	return ctx.JSON(group)
}

func writeRegistryError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, entity.ErrDuplicateFeature):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	case errors.Is(err, entity.ErrUnknownFeature), errors.Is(err, entity.ErrUnknownGroup):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case entity.IsValidation(err), errors.Is(err, entity.ErrDependencyCycle):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(serverutils.ErrorResponse(422, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
