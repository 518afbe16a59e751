package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
)

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize converts text to speech and streams the audio back.
func (s *APIV1Service) Synthesize(c echo.Context) error {
	if s.Speech == nil || !s.Speech.Enabled() {
		return errorJSON(c, serrors.New(serrors.ErrCodeSpeechUnavailable, "speech services are not configured"))
	}

	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "malformed request body"))
	}
	if strings.TrimSpace(req.Text) == "" {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "text is required"))
	}

	audio, err := s.Speech.Synthesize(c.Request().Context(), req.Text, req.Voice)
	if err != nil {
		return errorJSON(c, serrors.Wrap(serrors.ErrCodeSpeechUnavailable, "speech synthesis failed", err))
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}
