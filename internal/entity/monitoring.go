package entity

import (
	"DrowsinessMonitor/pkg/drowsiness"
	"time"
)

type MonitoringSession struct {
	ID         string            `json:"id"`
	DriverID   string            `json:"driver_id"`
	OperatorID string            `json:"operator_id"`
	Config     drowsiness.Config `json:"config"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
}

// AlertEvent records one dispatched drowsiness alert.
type AlertEvent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	DriverID    string    `json:"driver_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	FrameNumber int64     `json:"frame_number"`
	EAR         float64   `json:"ear"`
	MAR         float64   `json:"mar"`
	HeadTilt    float64   `json:"head_tilt"`
	AudioLink   string    `json:"audio_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LandmarkResult is what the face mesh service answers for one image.
type LandmarkResult struct {
	FaceDetected bool                 `json:"face_detected"`
	Landmarks    drowsiness.Landmarks `json:"landmarks,omitempty"`
	Error        string               `json:"error,omitempty"`
}
