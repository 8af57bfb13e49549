package monitoringHandler

import (
	"DrowsinessMonitor/internal/api/monitoring"
	contextPkg "DrowsinessMonitor/pkg/context"
	"DrowsinessMonitor/pkg/handlerUtil"
	jwtPkg "DrowsinessMonitor/pkg/jwt"
	"DrowsinessMonitor/pkg/log"
	"errors"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"strings"
	"time"
)

func (h *MonitoringHandler) CreateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create session request")

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	var req monitoring.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	req.OperatorID = operator.ID

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	session, err := h.monitoringService.StartSession(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "start_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, monitoring.SessionResponse{
			ID:         session.ID,
			DriverID:   session.DriverID,
			OperatorID: session.OperatorID,
			Config:     session.Config,
			StartedAt:  session.StartedAt.Format(time.RFC3339),
		})
	}
}

func (h *MonitoringHandler) GetSnapshot(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	snapshot, err := h.monitoringService.GetSnapshot(c, operator.ID, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_snapshot")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, snapshot)
	}
}

func isRawImage(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, fiber.MIMEOctetStream)
}

// AnalyzeFrame accepts either a JSON landmark frame or a raw camera image,
// which is first sent to the landmark provider.
func (h *MonitoringHandler) AnalyzeFrame(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	sessionID := ctx.Params("id")

	var result monitoring.AnalysisResponse
	if isRawImage(ctx.Get(fiber.HeaderContentType)) {
		result, err = h.monitoringService.AnalyzeImage(c, operator.ID, sessionID, ctx.Body())
	} else {
		var req monitoring.FrameRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
		result, err = h.monitoringService.AnalyzeFrame(c, operator.ID, sessionID, req)
	}
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *MonitoringHandler) ResetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	if err := h.monitoringService.ResetSession(c, operator.ID, ctx.Params("id")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reset_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"message": "Session reset successfully",
		})
	}
}

func (h *MonitoringHandler) EndSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	if err := h.monitoringService.EndSession(c, operator.ID, ctx.Params("id")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "end_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"message": "Session ended successfully",
		})
	}
}

func (h *MonitoringHandler) ListEvents(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	operator, err := jwtPkg.GetOperator(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	limit := ctx.QueryInt("limit", 0)
	if limit < 0 {
		return errHandler.HandleValidationError(ctx, requestID, errors.New("limit must not be negative"), ctx.Path())
	}

	sessionID := ctx.Params("id")
	events, err := h.monitoringService.ListEvents(c, operator.ID, sessionID, limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_events")
	}

	response := monitoring.AlertEventListResponse{
		SessionID: sessionID,
		Events:    make([]monitoring.AlertEventResponse, 0, len(events)),
	}
	for _, event := range events {
		response.Events = append(response.Events, monitoring.AlertEventResponse{
			ID:          event.ID,
			Status:      event.Status,
			Message:     event.Message,
			FrameNumber: event.FrameNumber,
			EAR:         event.EAR,
			MAR:         event.MAR,
			HeadTilt:    event.HeadTilt,
			AudioLink:   event.AudioLink,
			CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		})
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, response)
	}
}
