package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/store"
)

type createThoughtRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

type createThoughtResponse struct {
	ThoughtID string `json:"thoughtId"`
}

type thoughtResponse struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	Source         string   `json:"source"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags"`
	Entities       []string `json:"entities"`
	Interpretation string   `json:"interpretation"`
	CreatedAt      string   `json:"createdAt"`
}

// CreateThought captures a thought: enrich, persist, then best-effort push
// into the vector index.
func (s *APIV1Service) CreateThought(c echo.Context) error {
	var req createThoughtRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "malformed request body"))
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "content is required"))
	}

	thought, err := s.captureThought(c, content, req.Title, store.SourceManual)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, createThoughtResponse{ThoughtID: thought.ID})
}

// TranscribeThought accepts a multipart audio file, transcribes it, and
// captures the transcript through the same path as a typed thought.
func (s *APIV1Service) TranscribeThought(c echo.Context) error {
	if s.Speech == nil || !s.Speech.Enabled() {
		return errorJSON(c, serrors.New(serrors.ErrCodeSpeechUnavailable, "speech services are not configured"))
	}
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "audio file is required"))
	}

	text, err := s.Speech.Transcribe(c.Request().Context(), file)
	if err != nil {
		return errorJSON(c, serrors.Wrap(serrors.ErrCodeSpeechUnavailable, "transcription failed", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "transcription produced no text"))
	}

	thought, err := s.captureThought(c, text, "", store.SourceVoice)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, createThoughtResponse{ThoughtID: thought.ID})
}

func (s *APIV1Service) captureThought(c echo.Context, content, providedTitle string, source store.Source) (*store.Thought, error) {
	ctx := c.Request().Context()
	owner := ownerFrom(c)

	meta := s.Extractor.Extract(ctx, content, providedTitle)

	thought, err := s.Store.CreateThought(ctx, &store.Thought{
		ID:             uuid.NewString(),
		Owner:          owner,
		Source:         source,
		Title:          meta.Title,
		Summary:        meta.Summary,
		Content:        content,
		Tags:           meta.Tags,
		Entities:       meta.Entities,
		Interpretation: meta.Interpretation,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrCodeInternal, "failed to persist thought", err)
	}

	// The index is derived state. A failed write is repaired by the
	// background runner, so it never fails the capture.
	if s.Index != nil {
		indexErr := timeout.Do(ctx, timeout.IndexWriteTimeout, func(ictx context.Context) error {
			return s.Index.Upsert(ictx, thought.ID, thought.Content, vector.Metadata{
				ID:        thought.ID,
				Title:     thought.Title,
				CreatedAt: time.Unix(thought.CreatedTs, 0).UTC(),
				Source:    string(thought.Source),
			})
		})
		if indexErr != nil {
			slog.Warn("failed to index thought", "thought_id", thought.ID, "error", indexErr)
		}
	}

	return thought, nil
}

// ListThoughts returns the owner's thoughts, newest first.
func (s *APIV1Service) ListThoughts(c echo.Context) error {
	owner := ownerFrom(c)

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "limit must be between 1 and 100"))
		}
		limit = n
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "offset must be non-negative"))
		}
		offset = n
	}

	thoughts, err := s.Store.ListThoughts(c.Request().Context(), &store.FindThought{
		Owner:  &owner,
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return errorJSON(c, serrors.Wrap(serrors.ErrCodeInternal, "failed to list thoughts", err))
	}

	out := make([]thoughtResponse, 0, len(thoughts))
	for _, t := range thoughts {
		out = append(out, convertThought(t))
	}
	return c.JSON(http.StatusOK, out)
}

// ClearThoughts removes every thought for the owner from the store and the
// vector index.
func (s *APIV1Service) ClearThoughts(c echo.Context) error {
	ctx := c.Request().Context()
	owner := ownerFrom(c)

	ids, err := s.Store.DeleteThoughts(ctx, owner)
	if err != nil {
		return errorJSON(c, serrors.Wrap(serrors.ErrCodeInternal, "failed to clear thoughts", err))
	}

	if s.Index != nil {
		for _, id := range ids {
			if err := s.Index.Remove(ctx, id); err != nil {
				slog.Warn("failed to remove thought from index", "thought_id", id, "error", err)
			}
		}
	}
	if s.Tracker != nil {
		s.Tracker.Forget(ids)
	}

	return c.JSON(http.StatusOK, map[string]int{"deleted": len(ids)})
}

func convertThought(t *store.Thought) thoughtResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	entities := t.Entities
	if entities == nil {
		entities = []string{}
	}
	return thoughtResponse{
		ID:             t.ID,
		Owner:          t.Owner,
		Source:         string(t.Source),
		Title:          t.Title,
		Summary:        t.Summary,
		Content:        t.Content,
		Tags:           tags,
		Entities:       entities,
		Interpretation: t.Interpretation,
		CreatedAt:      time.Unix(t.CreatedTs, 0).UTC().Format(time.RFC3339),
	}
}
