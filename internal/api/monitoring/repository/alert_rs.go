package monitoringRepository

import (
	"DrowsinessMonitor/internal/entity"
	contextPkg "DrowsinessMonitor/pkg/context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

type AlertEventDB struct {
	ID          sql.NullString  `db:"id"`
	SessionID   sql.NullString  `db:"session_id"`
	DriverID    sql.NullString  `db:"driver_id"`
	Status      sql.NullString  `db:"status"`
	Message     sql.NullString  `db:"message"`
	FrameNumber sql.NullInt64   `db:"frame_number"`
	EAR         sql.NullFloat64 `db:"ear"`
	MAR         sql.NullFloat64 `db:"mar"`
	HeadTilt    sql.NullFloat64 `db:"head_tilt"`
	AudioLink   sql.NullString  `db:"audio_link"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r *alertRepository) CreateEvent(c context.Context, event entity.AlertEvent) error {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id":           event.ID,
		"session_id":   event.SessionID,
		"driver_id":    event.DriverID,
		"status":       event.Status,
		"message":      event.Message,
		"frame_number": event.FrameNumber,
		"ear":          event.EAR,
		"mar":          event.MAR,
		"head_tilt":    event.HeadTilt,
		"audio_link":   sql.NullString{String: event.AudioLink, Valid: event.AudioLink != ""},
		"created_at":   event.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateEvent, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateEvent")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": event.SessionID,
			"error":      err.Error(),
		}).Error("Database error when creating alert event")
		return err
	}

	return nil
}

func (r *alertRepository) ListEventsBySession(c context.Context, sessionID string, limit int) ([]entity.AlertEvent, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []AlertEventDB

	query, args, err := sqlx.Named(queryListEventsBySession, map[string]interface{}{
		"session_id": sessionID,
		"limit":      limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListEventsBySession named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Database error when listing alert events")
		return nil, err
	}

	events := make([]entity.AlertEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, entity.AlertEvent{
			ID:          row.ID.String,
			SessionID:   row.SessionID.String,
			DriverID:    row.DriverID.String,
			Status:      row.Status.String,
			Message:     row.Message.String,
			FrameNumber: row.FrameNumber.Int64,
			EAR:         row.EAR.Float64,
			MAR:         row.MAR.Float64,
			HeadTilt:    row.HeadTilt.Float64,
			AudioLink:   row.AudioLink.String,
			CreatedAt:   row.CreatedAt,
		})
	}

	return events, nil
}
