package controller

import (
	"civic-chat-be/internal/dto"
	"civic-chat-be/internal/pkg/serverutils"
	"civic-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Create(ctx *fiber.Ctx) error
	UpdateRating(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type logController struct {
	logService service.ILogService
}

func NewLogController(logService service.ILogService) ILogController {
	return &logController{
		logService: logService,
	}
}

func (c *logController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/log")
	for _, m := range middlewares {
		h.Use(m)
	}
	h.Post("", c.Create)
	h.Put("", c.UpdateRating)
	h.Get(":id", c.Show)
}

func (c *logController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateLogRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.logService.Create(ctx.Context(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create log", res))
}

func (c *logController) UpdateRating(ctx *fiber.Ctx) error {
	var req dto.UpdateLogRatingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.logService.UpdateRating(ctx.Context(), req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success update rating", nil))
}

func (c *logController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid log id"))
	}

	res, err := c.logService.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	if res == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show log", res))
}
