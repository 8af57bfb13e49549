package audio

import (
	"errors"
	"fmt"
	"golang.org/x/net/context"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

var ErrNotConfigured = errors.New("OPENAI_API_KEY not set")

type ITTS interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type TTSService struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	speed  float64
}

// NewTTSService reads OPENAI_API_KEY, OPENAI_TTS_MODEL and OPENAI_TTS_VOICE.
func NewTTSService() (*TTSService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	model := openai.SpeechModel(os.Getenv("OPENAI_TTS_MODEL"))
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(os.Getenv("OPENAI_TTS_VOICE"))
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	return &TTSService{
		client: openai.NewClient(apiKey),
		model:  model,
		voice:  voice,
		// a little slower than default, close to a 150 wpm reading rate
		speed: 0.9,
	}, nil
}

func (t *TTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          t.model,
		Input:          text,
		Voice:          t.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          t.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	return io.ReadAll(resp)
}
