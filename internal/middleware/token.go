package middleware

import (
	jwtPkg "DrowsinessMonitor/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const OperatorKey = "operator"

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
		"code":  "UNAUTHORIZED",
	})
}

// NewTokenMiddleware verifies the bearer token and stores the operator it
// names under OperatorKey.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	fields := logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"path":       ctx.Path(),
		"method":     ctx.Method(),
		"client_ip":  ctx.IP(),
	}

	userToken, err := jwtPkg.VerifyTokenHeader(ctx, jwtPkg.AccessTokenSecretEnv)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(fields).Warn("Invalid token claims")
		return unauthorized(ctx)
	}

	operator, err := jwtPkg.OperatorFromClaims(claims)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Token claims check")
		return unauthorized(ctx)
	}

	ctx.Locals(OperatorKey, operator)

	m.log.WithFields(fields).WithField("operator_id", operator.ID).Debug("Authentication successful")
	return ctx.Next()
}
