package monitoringRepository

const (
	queryCreateSession = `
		INSERT INTO monitoring_sessions (
			id,
			driver_id,
			operator_id,
			config,
			started_at
		) VALUES (
			:id,
			:driver_id,
			:operator_id,
			:config,
			:started_at
		)
	`

	queryGetSessionByID = `
		SELECT
			id,
			driver_id,
			operator_id,
			config,
			started_at,
			ended_at
		FROM monitoring_sessions
		WHERE id = :id
	`

	queryEndSession = `
		UPDATE monitoring_sessions
		SET ended_at = :ended_at
		WHERE id = :id AND ended_at IS NULL
	`

	queryCreateEvent = `
		INSERT INTO alert_events (
			id,
			session_id,
			driver_id,
			status,
			message,
			frame_number,
			ear,
			mar,
			head_tilt,
			audio_link,
			created_at
		) VALUES (
			:id,
			:session_id,
			:driver_id,
			:status,
			:message,
			:frame_number,
			:ear,
			:mar,
			:head_tilt,
			:audio_link,
			:created_at
		)
	`

	queryListEventsBySession = `
		SELECT
			id,
			session_id,
			driver_id,
			status,
			message,
			frame_number,
			ear,
			mar,
			head_tilt,
			audio_link,
			created_at
		FROM alert_events
		WHERE session_id = :session_id
		ORDER BY created_at DESC
		LIMIT :limit
	`
)
