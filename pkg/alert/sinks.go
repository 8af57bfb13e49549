package alert

import (
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Archiver interface {
	UploadAudio(ctx context.Context, key string, data []byte) (string, error)
}

type Publisher interface {
	Publish(topic string, payload []byte) error
}

type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// SpeechSink turns the alert message into audio for the driver. When an
// archiver is set the clip is also stored and linked on the notification.
type SpeechSink struct {
	tts     Synthesizer
	archive Archiver
}

func NewSpeechSink(tts Synthesizer, archive Archiver) *SpeechSink {
	return &SpeechSink{tts: tts, archive: archive}
}

func (s *SpeechSink) Name() string { return "speech" }

func (s *SpeechSink) Send(ctx context.Context, n *Notification) error {
	audio, err := s.tts.Synthesize(ctx, n.Message)
	if err != nil {
		return err
	}
	n.Audio = audio

	if s.archive == nil {
		return nil
	}

	key := fmt.Sprintf("alerts/%s/%d.mp3", n.Key, n.IssuedAt.UnixMilli())
	link, err := s.archive.UploadAudio(ctx, key, audio)
	if err != nil {
		// archive failures do not fail the alert
		return nil
	}
	n.AudioLink = link
	return nil
}

// PublishSink fans alerts out on <prefix>/<key>.
type PublishSink struct {
	pub    Publisher
	prefix string
}

func NewPublishSink(pub Publisher, prefix string) *PublishSink {
	if prefix == "" {
		prefix = "drowsiness/alerts"
	}
	return &PublishSink{pub: pub, prefix: prefix}
}

func (s *PublishSink) Name() string { return "mqtt" }

func (s *PublishSink) Send(_ context.Context, n *Notification) error {
	payload, err := json.Marshal(struct {
		Session string `json:"session_id"`
		*Notification
	}{n.Key, n})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return s.pub.Publish(fmt.Sprintf("%s/%s", s.prefix, n.Key), payload)
}

// ChatSink forwards the alert to a supervisor chat.
type ChatSink struct {
	sender TextSender
}

func NewChatSink(sender TextSender) *ChatSink {
	return &ChatSink{sender: sender}
}

func (s *ChatSink) Name() string { return "telegram" }

func (s *ChatSink) Send(ctx context.Context, n *Notification) error {
	text := fmt.Sprintf("[%s] session %s: %s\n%s",
		n.IssuedAt.Format("15:04:05"), n.Key, n.Status, n.Message)
	return s.sender.SendText(ctx, text)
}
