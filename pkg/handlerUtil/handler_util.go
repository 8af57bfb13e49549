package handlerUtil

import (
	"DrowsinessMonitor/pkg/drowsiness"
	"DrowsinessMonitor/pkg/log"
	"DrowsinessMonitor/pkg/response"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed with error response")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	if errors.Is(err, drowsiness.ErrInvalidConfig) {
		h.logger.WithFields(fields).Warn("Invalid analyzer thresholds")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_THRESHOLDS",
		})
	}

	if errors.Is(err, drowsiness.ErrMalformedLandmarks) {
		h.logger.WithFields(fields).Warn("Malformed landmark set")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "MALFORMED_LANDMARKS",
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"error": utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
