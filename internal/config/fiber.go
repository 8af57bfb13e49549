package config

import (
	"DrowsinessMonitor/pkg/log"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:               "Drowsiness Monitor",
			BodyLimit:             8 * 1024 * 1024,
			DisableKeepalive:      false,
			StrictRouting:         true,
			CaseSensitive:         true,
			DisableStartupMessage: true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
			ErrorHandler: func(ctx *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if e, ok := err.(*fiber.Error); ok {
					code = e.Code
				}
				if code >= fiber.StatusInternalServerError {
					logger.WithFields(log.Fields{
						"path":  ctx.Path(),
						"error": err.Error(),
					}).Error("Unhandled error")
				}
				return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})

	return app
}
