package monitoring

import (
	"DrowsinessMonitor/pkg/alert"
	"DrowsinessMonitor/pkg/drowsiness"
)

// ThresholdOverrides replaces individual thresholds of the server defaults for
// one session. Landmark indices are not overridable per session.
type ThresholdOverrides struct {
	EyeARThresh          *float64 `json:"eye_ar_thresh" validate:"omitempty,gt=0"`
	EyeARConsecFrames    *int     `json:"eye_ar_consec_frames" validate:"omitempty,gt=0"`
	YawnThresh           *float64 `json:"yawn_thresh" validate:"omitempty,gt=0"`
	YawnConsecFrames     *int     `json:"yawn_consec_frames" validate:"omitempty,gt=0"`
	HeadTiltThresh       *float64 `json:"head_tilt_thresh" validate:"omitempty,gt=0"`
	HeadTiltConsecFrames *int     `json:"head_tilt_consec_frames" validate:"omitempty,gt=0"`
	BlinkThresh          *float64 `json:"blink_thresh" validate:"omitempty,gt=0"`
	BlinkInterval        *int     `json:"blink_interval" validate:"omitempty,gt=0"`
	BlinkCountThresh     *int     `json:"blink_count_thresh" validate:"omitempty,gt=0"`
}

func (o *ThresholdOverrides) Apply(base drowsiness.Config) drowsiness.Config {
	if o == nil {
		return base
	}
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setF(&base.EyeARThresh, o.EyeARThresh)
	setI(&base.EyeARConsecFrames, o.EyeARConsecFrames)
	setF(&base.YawnThresh, o.YawnThresh)
	setI(&base.YawnConsecFrames, o.YawnConsecFrames)
	setF(&base.HeadTiltThresh, o.HeadTiltThresh)
	setI(&base.HeadTiltConsecFrames, o.HeadTiltConsecFrames)
	setF(&base.BlinkThresh, o.BlinkThresh)
	setI(&base.BlinkInterval, o.BlinkInterval)
	setI(&base.BlinkCountThresh, o.BlinkCountThresh)

	return base
}

type CreateSessionRequest struct {
	DriverID   string              `json:"driver_id" validate:"required,max=64"`
	Thresholds *ThresholdOverrides `json:"thresholds,omitempty"`
	OperatorID string              `json:"-"`
}

type SessionResponse struct {
	ID         string            `json:"id"`
	DriverID   string            `json:"driver_id"`
	OperatorID string            `json:"operator_id"`
	Config     drowsiness.Config `json:"config"`
	StartedAt  string            `json:"started_at"`
}

// FrameRequest is one landmark frame as produced by a face mesh detector.
// Landmarks are ignored when FaceDetected is false.
type FrameRequest struct {
	FaceDetected bool                 `json:"face_detected"`
	Landmarks    drowsiness.Landmarks `json:"landmarks"`
}

type AnalysisResponse struct {
	SessionID   string               `json:"session_id"`
	FrameNumber int64                `json:"frame_number"`
	Status      drowsiness.Status    `json:"status"`
	IsDrowsy    bool                 `json:"is_drowsy"`
	Features    *drowsiness.Features `json:"features,omitempty"`
	Timestamp   string               `json:"timestamp"`
	Alert       *alert.Notification  `json:"alert,omitempty"`
}

type SessionSnapshot struct {
	SessionID           string            `json:"session_id"`
	DriverID            string            `json:"driver_id"`
	FramesProcessed     int64             `json:"frames_processed"`
	LastStatus          drowsiness.Status `json:"last_status"`
	IsDrowsy            bool              `json:"is_drowsy"`
	State               drowsiness.State  `json:"state"`
	CooldownRemainingMs int64             `json:"cooldown_remaining_ms"`
	StartedAt           string            `json:"started_at"`
	LastFrameAt         string            `json:"last_frame_at,omitempty"`
}

type AlertEventResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	FrameNumber int64   `json:"frame_number"`
	EAR         float64 `json:"ear"`
	MAR         float64 `json:"mar"`
	HeadTilt    float64 `json:"head_tilt"`
	AudioLink   string  `json:"audio_link,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type AlertEventListResponse struct {
	SessionID string               `json:"session_id"`
	Events    []AlertEventResponse `json:"events"`
}
