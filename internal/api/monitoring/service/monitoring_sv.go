package monitoringService

import (
	"DrowsinessMonitor/internal/api/monitoring"
	"DrowsinessMonitor/internal/entity"
	"DrowsinessMonitor/pkg/alert"
	contextPkg "DrowsinessMonitor/pkg/context"
	"DrowsinessMonitor/pkg/drowsiness"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

func (s *monitoringService) lookup(operatorID, sessionID string) (*liveSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, monitoring.ErrSessionNotFound
	}
	if sess.info.OperatorID != operatorID {
		return nil, monitoring.ErrSessionNotOwned
	}
	return sess, nil
}

func (s *monitoringService) StartSession(ctx context.Context, req monitoring.CreateSessionRequest) (entity.MonitoringSession, error) {
	requestID := contextPkg.GetRequestID(ctx)

	cfg := req.Thresholds.Apply(s.defaults)
	analyzer, err := drowsiness.New(cfg)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"driver_id":  req.DriverID,
			"error":      err.Error(),
		}).Warn("Rejected session thresholds")
		return entity.MonitoringSession{}, err
	}

	now := s.utils.Clock()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.MonitoringSession{}, err
	}

	session := entity.MonitoringSession{
		ID:         id,
		DriverID:   req.DriverID,
		OperatorID: req.OperatorID,
		Config:     cfg,
		StartedAt:  now,
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.MonitoringSession{}, monitoring.ErrCreateSession
	}

	if err := repo.Session.CreateSession(ctx, session); err != nil {
		return entity.MonitoringSession{}, monitoring.ErrCreateSession
	}

	s.mu.Lock()
	s.sessions[id] = &liveSession{
		info:     session,
		analyzer: analyzer,
		last:     drowsiness.Result{Status: drowsiness.StatusNoFace},
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"session_id":  id,
		"driver_id":   req.DriverID,
		"operator_id": req.OperatorID,
	}).Info("Monitoring session started")

	return session, nil
}

func (s *monitoringService) GetSnapshot(ctx context.Context, operatorID, sessionID string) (monitoring.SessionSnapshot, error) {
	sess, err := s.lookup(operatorID, sessionID)
	if err != nil {
		return monitoring.SessionSnapshot{}, err
	}

	sess.mu.Lock()
	snapshot := monitoring.SessionSnapshot{
		SessionID:       sess.info.ID,
		DriverID:        sess.info.DriverID,
		FramesProcessed: sess.frames,
		LastStatus:      sess.last.Status,
		IsDrowsy:        sess.last.Drowsy,
		State:           sess.analyzer.State(),
		StartedAt:       sess.info.StartedAt.Format(time.RFC3339),
	}
	if !sess.lastAt.IsZero() {
		snapshot.LastFrameAt = sess.lastAt.Format(time.RFC3339Nano)
	}
	sess.mu.Unlock()

	if s.notifier != nil {
		left, err := s.notifier.CooldownRemaining(ctx, sessionID)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to read alert cooldown")
		}
		snapshot.CooldownRemainingMs = left.Milliseconds()
	}

	return snapshot, nil
}

// AnalyzeFrame runs one landmark frame through the session's analyzer. A
// drowsy result is handed to the notifier; a dispatched alert is attached to
// the response and stored as an event. Alert failures never fail the frame.
func (s *monitoringService) AnalyzeFrame(ctx context.Context, operatorID, sessionID string, frame monitoring.FrameRequest) (monitoring.AnalysisResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	sess, err := s.lookup(operatorID, sessionID)
	if err != nil {
		return monitoring.AnalysisResponse{}, err
	}

	landmarks := frame.Landmarks
	if !frame.FaceDetected {
		landmarks = nil
	}

	sess.mu.Lock()
	result, err := sess.analyzer.Analyze(landmarks)
	if err != nil {
		sess.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"points":     len(landmarks),
			"error":      err.Error(),
		}).Warn("Rejected landmark frame")
		return monitoring.AnalysisResponse{}, err
	}
	sess.frames++
	frameNumber := sess.frames
	now := s.utils.Clock()
	sess.last = result
	sess.lastAt = now
	info := sess.info
	sess.mu.Unlock()

	resp := monitoring.AnalysisResponse{
		SessionID:   sessionID,
		FrameNumber: frameNumber,
		Status:      result.Status,
		IsDrowsy:    result.Drowsy,
		Features:    result.Features,
		Timestamp:   now.Format(time.RFC3339Nano),
	}

	if !result.Drowsy {
		return resp, nil
	}

	fields := logrus.Fields{
		"request_id": requestID,
		"session_id": sessionID,
		"driver_id":  info.DriverID,
		"frame":      frameNumber,
		"time":       now.Format("15:04:05"),
		"status":     result.Status.String(),
	}
	if result.Features != nil {
		fields["ear"] = result.Features.EAR
		fields["mar"] = result.Features.MAR
		fields["head_tilt"] = result.Features.HeadTilt
	}
	s.log.WithFields(fields).Warn("Drowsiness detected")

	if s.notifier == nil {
		return resp, nil
	}

	note, err := s.notifier.Notify(ctx, sessionID, result.Status)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to dispatch drowsiness alert")
		return resp, nil
	}
	if note == nil {
		return resp, nil
	}

	resp.Alert = note
	s.recordEvent(ctx, info, frameNumber, result, note)

	return resp, nil
}

func (s *monitoringService) recordEvent(ctx context.Context, info entity.MonitoringSession, frameNumber int64, result drowsiness.Result, note *alert.Notification) {
	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": info.ID,
	}

	id, err := s.utils.NewULIDFromTimestamp(note.IssuedAt)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to generate ULID")
		return
	}

	event := entity.AlertEvent{
		ID:          id,
		SessionID:   info.ID,
		DriverID:    info.DriverID,
		Status:      note.Status.String(),
		Message:     note.Message,
		FrameNumber: frameNumber,
		AudioLink:   note.AudioLink,
		CreatedAt:   note.IssuedAt,
	}
	if result.Features != nil {
		event.EAR = result.Features.EAR
		event.MAR = result.Features.MAR
		event.HeadTilt = result.Features.HeadTilt
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to create new client")
		return
	}

	if err := repo.Alert.CreateEvent(ctx, event); err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to store alert event")
	}
}

func (s *monitoringService) AnalyzeImage(ctx context.Context, operatorID, sessionID string, image []byte) (monitoring.AnalysisResponse, error) {
	if len(image) == 0 {
		return monitoring.AnalysisResponse{}, monitoring.ErrEmptyFrame
	}
	if _, err := s.lookup(operatorID, sessionID); err != nil {
		return monitoring.AnalysisResponse{}, err
	}
	if s.provider == nil {
		return monitoring.AnalysisResponse{}, monitoring.ErrProviderUnavailable
	}

	result, err := s.provider.ProcessFrame(image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Landmark provider failed")
		return monitoring.AnalysisResponse{}, monitoring.ErrProviderUnavailable
	}

	return s.AnalyzeFrame(ctx, operatorID, sessionID, monitoring.FrameRequest{
		FaceDetected: result.FaceDetected,
		Landmarks:    result.Landmarks,
	})
}

func (s *monitoringService) ResetSession(ctx context.Context, operatorID, sessionID string) error {
	sess, err := s.lookup(operatorID, sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.analyzer.Reset()
	sess.last = drowsiness.Result{Status: drowsiness.StatusNoFace}
	sess.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Info("Monitoring session reset")

	return nil
}

func (s *monitoringService) EndSession(ctx context.Context, operatorID, sessionID string) error {
	if _, err := s.lookup(operatorID, sessionID); err != nil {
		return err
	}

	if err := s.closeSession(ctx, sessionID); err != nil {
		return monitoring.ErrEndSession
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Info("Monitoring session ended")

	return nil
}

// closeSession marks the row ended, then drops the live session and its
// cooldown. A row that is already ended is not an error.
func (s *monitoringService) closeSession(ctx context.Context, sessionID string) error {
	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to create new client")
		return err
	}

	if err := repo.Session.EndSession(ctx, sessionID, s.utils.Clock()); err != nil && !errors.Is(err, monitoring.ErrSessionNotFound) {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.Forget(ctx, sessionID); err != nil {
			s.log.WithFields(fields).WithError(err).Warn("Failed to clear alert cooldown")
		}
	}

	return nil
}

func (s *monitoringService) ListEvents(ctx context.Context, operatorID, sessionID string, limit int) ([]entity.AlertEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	// ended sessions only live in the database
	if _, err := s.lookup(operatorID, sessionID); err != nil {
		if !errors.Is(err, monitoring.ErrSessionNotFound) {
			return nil, err
		}
		session, err := repo.Session.GetSessionByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.OperatorID != operatorID {
			return nil, monitoring.ErrSessionNotOwned
		}
	}

	events, err := repo.Alert.ListEventsBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alert events: %w", err)
	}

	return events, nil
}

// Shutdown ends every live session.
func (s *monitoringService) Shutdown(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.closeSession(ctx, id); err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": id,
				"error":      err.Error(),
			}).Error("Failed to end session on shutdown")
		}
	}

	s.log.WithField("sessions", len(ids)).Info("Monitoring sessions closed")
}
