package monitoringHandler

import (
	"DrowsinessMonitor/internal/api/monitoring"
	"DrowsinessMonitor/internal/entity"
	"DrowsinessMonitor/internal/middleware"
	contextPkg "DrowsinessMonitor/pkg/context"
	"DrowsinessMonitor/pkg/drowsiness"
	"DrowsinessMonitor/pkg/response"
	"errors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type wsError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func errorCode(err error) int {
	var respErr *response.Error
	switch {
	case errors.As(err, &respErr):
		return respErr.Code
	case errors.Is(err, drowsiness.ErrMalformedLandmarks):
		return 422
	default:
		return 500
	}
}

// handleSessionWebSocket streams frames for one session. Text messages carry
// JSON landmark frames, binary messages carry camera images. Each message is
// answered with one JSON result, followed by a binary audio message when a
// spoken alert was produced.
func (h *MonitoringHandler) handleSessionWebSocket(c *websocket.Conn) {
	sessionID := c.Params("id")
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	operator, ok := c.Locals(middleware.OperatorKey).(entity.Operator)
	if !ok {
		c.WriteJSON(wsError{Error: "Unauthorized", Code: 401})
		return
	}

	logger := h.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	})
	logger.Info("Monitoring WebSocket client connected")
	defer logger.Info("Monitoring WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second
	base := contextPkg.WithSessionID(contextPkg.WithRequestID(context.Background(), requestID), sessionID)

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Monitoring WebSocket error: %v", err)
			}
			break
		}

		ctx, cancel := context.WithTimeout(base, 10*time.Second)
		var result monitoring.AnalysisResponse

		switch messageType {
		case websocket.TextMessage:
			var frame monitoring.FrameRequest
			if err = json.Unmarshal(message, &frame); err != nil {
				err = response.Wrap(400, err)
				break
			}
			result, err = h.monitoringService.AnalyzeFrame(ctx, operator.ID, sessionID, frame)
		case websocket.BinaryMessage:
			result, err = h.monitoringService.AnalyzeImage(ctx, operator.ID, sessionID, message)
		default:
			cancel()
			continue
		}
		cancel()

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			logger.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err != nil {
			code := errorCode(err)
			if writeErr := c.WriteJSON(wsError{Error: err.Error(), Code: code}); writeErr != nil {
				logger.Errorf("Error sending error response: %v", writeErr)
				break
			}
			// the session is gone or not ours, nothing more to do on this socket
			if errors.Is(err, monitoring.ErrSessionNotFound) || errors.Is(err, monitoring.ErrSessionNotOwned) {
				break
			}
			continue
		}

		if err := c.WriteJSON(result); err != nil {
			logger.Errorf("Error writing JSON response: %v", err)
			break
		}

		if result.Alert != nil && len(result.Alert.Audio) > 0 {
			if err := c.WriteMessage(websocket.BinaryMessage, result.Alert.Audio); err != nil {
				logger.Errorf("Error writing alert audio: %v", err)
				break
			}
		}
	}
}
