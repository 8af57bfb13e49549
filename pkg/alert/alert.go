package alert

import (
	"DrowsinessMonitor/pkg/drowsiness"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

const DefaultCooldown = 5 * time.Second

const genericMessage = "Warning: You appear drowsy. Stay alert!"

var messages = map[drowsiness.Status]string{
	drowsiness.StatusEyesClosed:       "Warning: Your eyes are closed. Stay alert!",
	drowsiness.StatusYawning:          "Warning: You are yawning. Stay awake!",
	drowsiness.StatusHeadTilted:       "Warning: Your head is tilted. Focus on driving!",
	drowsiness.StatusFrequentBlinking: "Warning: You are blinking frequently. Stay alert!",
}

// MessageFor maps a status label to the sentence spoken to the driver.
func MessageFor(status drowsiness.Status) string {
	if msg, ok := messages[status]; ok {
		return msg
	}
	return genericMessage
}

type Notification struct {
	Key       string            `json:"-"`
	Status    drowsiness.Status `json:"status"`
	Message   string            `json:"message"`
	IssuedAt  time.Time         `json:"issued_at"`
	Delivered []string          `json:"delivered"`
	AudioLink string            `json:"audio_link,omitempty"`
	Audio     []byte            `json:"-"`
}

// Cooldown grants at most one alert per key within a window.
type Cooldown interface {
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Remaining(ctx context.Context, key string) (time.Duration, error)
}

type Sink interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

type INotifier interface {
	Notify(ctx context.Context, key string, status drowsiness.Status) (*Notification, error)
	CooldownRemaining(ctx context.Context, key string) (time.Duration, error)
	Forget(ctx context.Context, key string) error
}

type Option func(*Notifier)

func WithCooldown(c Cooldown) Option {
	return func(n *Notifier) { n.cooldown = c }
}

func WithWindow(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.window = d
		}
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(n *Notifier) { n.sinks = append(n.sinks, sinks...) }
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

type Notifier struct {
	log      *logrus.Logger
	cooldown Cooldown
	window   time.Duration
	sinks    []Sink
	now      func() time.Time
}

func New(log *logrus.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		log:    log,
		window: DefaultCooldown,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.cooldown == nil {
		n.cooldown = NewMemoryCooldown(n.now)
	}
	return n
}

// Notify dispatches an alert for status unless key is still cooling down, in
// which case it returns a nil notification. When every sink fails the
// cooldown is released so the next drowsy frame tries again.
func (n *Notifier) Notify(ctx context.Context, key string, status drowsiness.Status) (*Notification, error) {
	ok, err := n.cooldown.Acquire(ctx, key, n.window)
	if err != nil {
		return nil, fmt.Errorf("acquire alert cooldown: %w", err)
	}
	if !ok {
		return nil, nil
	}

	note := &Notification{
		Key:      key,
		Status:   status,
		Message:  MessageFor(status),
		IssuedAt: n.now(),
	}

	fields := logrus.Fields{
		"key":     key,
		"status":  status.String(),
		"message": note.Message,
	}

	if len(n.sinks) == 0 {
		note.Delivered = append(note.Delivered, "log")
		n.log.WithFields(fields).Warn("Drowsiness alert")
		return note, nil
	}

	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Send(ctx, note); err != nil {
			n.log.WithFields(fields).WithField("sink", sink.Name()).WithError(err).Error("Alert sink failed")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		note.Delivered = append(note.Delivered, sink.Name())
	}

	if len(note.Delivered) == 0 {
		if err := n.cooldown.Release(ctx, key); err != nil {
			n.log.WithFields(fields).WithError(err).Warn("Failed to release alert cooldown")
		}
		return nil, errors.Join(errs...)
	}

	n.log.WithFields(fields).WithField("delivered", note.Delivered).Info("Drowsiness alert dispatched")
	return note, nil
}

func (n *Notifier) CooldownRemaining(ctx context.Context, key string) (time.Duration, error) {
	return n.cooldown.Remaining(ctx, key)
}

// Forget drops the cooldown for key, used when a session ends.
func (n *Notifier) Forget(ctx context.Context, key string) error {
	return n.cooldown.Release(ctx, key)
}
