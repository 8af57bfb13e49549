package middleware

import (
	"DrowsinessMonitor/pkg/log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bodies above this size (landmark frames, images) are not logged
const maxLoggedBody = 2048

var sensitiveFields = []string{
	"password", "token", "secret", "key", "auth",
	"credential", "authorization",
}

func LoggerConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		logFields := log.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 {
			logFields["request_body"] = sanitizeRequestBody(body)
		}

		switch {
		case status >= 500:
			log.Error(logFields, "Server error")
		case status >= 400:
			log.Warn(logFields, "Client error")
		default:
			log.Debug(logFields, "Success")
		}

		return err
	}
}

func sanitizeRequestBody(body []byte) string {
	if len(body) > maxLoggedBody {
		return "[omitted]"
	}

	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for name := range jsonBody {
		lower := strings.ToLower(name)
		for _, field := range sensitiveFields {
			if strings.Contains(lower, field) {
				jsonBody[name] = "[SECRET]"
				break
			}
		}
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}
