package controller

import (
	"errors"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/service"

	"github.com/gofiber/fiber/v2"
)

type EventController interface {
	CreateEvent(c *fiber.Ctx) error
}

// eventController exposes the HTTP write API.
type eventController struct {
	eventService service.EventService
}

// NewEventController builds an EventController.
func NewEventController(svc service.EventService) EventController {
	return &eventController{eventService: svc}
}

// CreateEvent accepts single tracking payloads.
func (h *eventController) CreateEvent(c *fiber.Ctx) error {
	var req model.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	event, err := h.eventService.BuildEvent(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := h.eventService.ProcessEvent(c.UserContext(), event)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process event")
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}
