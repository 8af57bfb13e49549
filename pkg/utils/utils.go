package utils

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	Clock() time.Time
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) Clock() time.Time {
	return time.Now()
}
