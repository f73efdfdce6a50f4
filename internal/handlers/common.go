package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bozor/internal/services"
)

// serviceError translates service-layer failures into HTTP errors. Anything
// unrecognized bubbles up as a 500 through fiber's error handler.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrShipmentNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidSignature):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyPaid):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, validationErr.Error())
	}

	var transitionErr *services.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return fiber.NewError(fiber.StatusConflict, transitionErr.Error())
	}

	return err
}
