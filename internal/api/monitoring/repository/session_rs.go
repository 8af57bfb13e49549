package monitoringRepository

import (
	"DrowsinessMonitor/internal/api/monitoring"
	"DrowsinessMonitor/internal/entity"
	"DrowsinessMonitor/pkg/drowsiness"
	contextPkg "DrowsinessMonitor/pkg/context"
	"database/sql"
	"errors"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MonitoringSessionDB struct {
	ID         sql.NullString `db:"id"`
	DriverID   sql.NullString `db:"driver_id"`
	OperatorID sql.NullString `db:"operator_id"`
	Config     []byte         `db:"config"`
	StartedAt  time.Time      `db:"started_at"`
	EndedAt    sql.NullTime   `db:"ended_at"`
}

func (s MonitoringSessionDB) toEntity() (entity.MonitoringSession, error) {
	session := entity.MonitoringSession{
		ID:         s.ID.String,
		DriverID:   s.DriverID.String,
		OperatorID: s.OperatorID.String,
		StartedAt:  s.StartedAt,
	}

	if s.EndedAt.Valid {
		endedAt := s.EndedAt.Time
		session.EndedAt = &endedAt
	}

	var cfg drowsiness.Config
	if err := json.Unmarshal(s.Config, &cfg); err != nil {
		return entity.MonitoringSession{}, err
	}
	session.Config = cfg

	return session, nil
}

func (r *sessionRepository) CreateSession(c context.Context, session entity.MonitoringSession) error {
	requestID := contextPkg.GetRequestID(c)

	cfg, err := json.Marshal(session.Config)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode session config")
		return err
	}

	argsKV := map[string]interface{}{
		"id":          session.ID,
		"driver_id":   session.DriverID,
		"operator_id": session.OperatorID,
		"config":      string(cfg),
		"started_at":  session.StartedAt,
	}

	query, args, err := sqlx.Named(queryCreateSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Database error when creating session")
		return err
	}

	return nil
}

func (r *sessionRepository) GetSessionByID(c context.Context, id string) (entity.MonitoringSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var row MonitoringSessionDB

	query, args, err := sqlx.Named(queryGetSessionByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID named query preparation err")
		return entity.MonitoringSession{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.MonitoringSession{}, monitoring.ErrSessionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Database error when getting session")
		return entity.MonitoringSession{}, err
	}

	session, err := row.toEntity()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Failed to decode session config")
		return entity.MonitoringSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) EndSession(c context.Context, id string, endedAt time.Time) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryEndSession, map[string]interface{}{
		"id":       id,
		"ended_at": endedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("EndSession named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Database error when ending session")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return monitoring.ErrSessionNotFound
	}

	return nil
}
