// Package speech wraps the OpenAI-compatible audio endpoints used for voice
// note transcription and spoken responses. Both services are external
// collaborators with a narrow contract; the rest of the system only sees text
// in and bytes out.
package speech

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
)

// ErrDisabled is returned when no speech provider is configured.
var ErrDisabled = errors.New("speech services are not configured")

// Transcriber converts an uploaded audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, file *multipart.FileHeader) (string, error)
}

// Synthesizer converts text to spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Service implements both Transcriber and Synthesizer.
type Service struct {
	client          *openai.Client
	transcribeModel string
	speechModel     string
}

// NewService creates a speech service from config. Returns a disabled service
// when no API key is configured.
func NewService(cfg *ai.SpeechConfig) *Service {
	if cfg == nil || cfg.APIKey == "" {
		return &Service{}
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Service{
		client:          openai.NewClientWithConfig(clientConfig),
		transcribeModel: cfg.TranscribeModel,
		speechModel:     cfg.SpeechModel,
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

func (s *Service) Transcribe(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	src, err := file.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open uploaded audio")
	}
	defer src.Close()

	filename := file.Filename
	if filename == "" {
		filename = "audio.m4a"
	}

	var text string
	err = timeout.Do(ctx, timeout.TranscribeTimeout, func(ctx context.Context) error {
		if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
			return errors.Wrap(seekErr, "failed to rewind audio stream")
		}
		resp, reqErr := s.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    s.transcribeModel,
			Reader:   src,
			FilePath: filename,
		})
		if reqErr != nil {
			return reqErr
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "transcription failed")
	}
	return text, nil
}

func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if voice == "" {
		voice = "alloy"
	}

	var audio []byte
	err := timeout.Do(ctx, timeout.TranscribeTimeout, func(ctx context.Context) error {
		resp, reqErr := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(s.speechModel),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if reqErr != nil {
			return reqErr
		}
		defer resp.Close()
		data, readErr := io.ReadAll(resp)
		if readErr != nil {
			return readErr
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "speech synthesis failed")
	}
	return audio, nil
}
