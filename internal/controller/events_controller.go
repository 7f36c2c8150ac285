package controller

import (
	"civic-chat-be/internal/pkg/serverutils"
	"civic-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEventsController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Upcoming(ctx *fiber.Ctx) error
}

type eventsController struct {
	eventsService service.IEventsService
}

func NewEventsController(eventsService service.IEventsService) IEventsController {
	return &eventsController{
		eventsService: eventsService,
	}
}

func (c *eventsController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/events")
	for _, m := range middlewares {
		h.Use(m)
	}
	h.Get("", c.Upcoming)
}

func (c *eventsController) Upcoming(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 0)
	daysAhead := ctx.QueryInt("days_ahead", 0)

	res, err := c.eventsService.GetUpcoming(ctx.Context(), limit, daysAhead)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list events", res))
}
