package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	notFound := NewError(http.StatusNotFound, "session not found")

	wrapped := fmt.Errorf("get session: %w", notFound)
	if !errors.Is(wrapped, notFound) {
		t.Error("Expected wrapped error to match its sentinel")
	}

	other := NewError(http.StatusNotFound, "event not found")
	if errors.Is(wrapped, other) {
		t.Error("Expected errors with different messages not to match")
	}

	sameMessage := NewError(http.StatusBadRequest, "session not found")
	if errors.Is(notFound, sameMessage) {
		t.Error("Expected errors with different codes not to match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("malformed landmark set")
	err := Wrap(http.StatusUnprocessableEntity, cause)

	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to be reachable")
	}

	var respErr *Error
	if !errors.As(err, &respErr) || respErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected *Error with code %d, got %v", http.StatusUnprocessableEntity, err)
	}
}
