package jwtPkg

import (
	"DrowsinessMonitor/internal/entity"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
	"time"
)

const AccessTokenSecretEnv = "JWT_ACCESS_TOKEN_SECRET"

var (
	ErrMissingSecret = errors.New("JWT secret not configured")
	ErrMissingHeader = errors.New("empty Authorization header")
	ErrBadFormat     = errors.New("invalid Authorization format")
)

// Sign issues an HS256 token carrying data as claims.
func Sign(data map[string]interface{}, ttl time.Duration) (string, int64, error) {
	expiredAt := time.Now().Add(ttl).Unix()

	secret := os.Getenv(AccessTokenSecretEnv)
	if secret == "" {
		return "", 0, ErrMissingSecret
	}

	claims := jwt.MapClaims{}
	for k, v := range data {
		claims[k] = v
	}
	claims["exp"] = expiredAt

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return signed, expiredAt, nil
}

func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	header := c.Get("Authorization")
	if header == "" {
		return nil, ErrMissingHeader
	}

	accessToken, ok := strings.CutPrefix(header, "Bearer ")
	accessToken = strings.TrimSpace(accessToken)
	if !ok || accessToken == "" {
		return nil, ErrBadFormat
	}

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		log.Error("JWT secret environment variable not set")
		return nil, ErrMissingSecret
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		log.WithError(err).Debug("Failed to parse JWT token")
		return nil, err
	}

	return token, nil
}

// OperatorFromClaims reads the operator identity out of verified claims.
func OperatorFromClaims(claims jwt.MapClaims) (entity.Operator, error) {
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	fleet, _ := claims["fleet"].(string)
	if id == "" || name == "" {
		return entity.Operator{}, errors.New("token claims are missing required fields")
	}

	return entity.Operator{ID: id, Name: name, Fleet: fleet}, nil
}

func GetOperator(c *fiber.Ctx) (entity.Operator, error) {
	operator, ok := c.Locals("operator").(entity.Operator)
	if !ok {
		return entity.Operator{}, fiber.ErrUnauthorized
	}

	return operator, nil
}
