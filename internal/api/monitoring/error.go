package monitoring

import (
	"DrowsinessMonitor/pkg/response"
	"net/http"
)

var (
	ErrSessionNotFound     = response.NewError(http.StatusNotFound, "monitoring session not found")
	ErrSessionNotOwned     = response.NewError(http.StatusForbidden, "monitoring session belongs to another operator")
	ErrEmptyFrame          = response.NewError(http.StatusBadRequest, "empty frame")
	ErrProviderUnavailable = response.NewError(http.StatusServiceUnavailable, "landmark provider unavailable")
	ErrCreateSession       = response.NewError(http.StatusInternalServerError, "failed to create monitoring session")
	ErrEndSession          = response.NewError(http.StatusInternalServerError, "failed to end monitoring session")
)
