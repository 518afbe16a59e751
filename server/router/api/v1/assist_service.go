package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/server/internal/observability"
	"github.com/hrygo/thoughtstream/server/retrieval"
	"github.com/hrygo/thoughtstream/store"
)

const maxCommentWords = 45

const searchFullPrompt = `You are selecting notes relevant to a question.
Below is a numbered list of the user's notes. Reply with a JSON array of the
numbers of the notes that are relevant to the question, most relevant first.
Reply with the JSON array only, no other text. Reply with [] if none apply.

Question: %s

Notes:
%s`

const commentPrompt = `You are a warm, concise voice assistant. The user asked:
%q

These notes of theirs came up:
%s

Reply with a single spoken-style comment of at most 40 words that reflects
what their notes say. No lists, no markdown, just the sentence.`

type assistSearchFullRequest struct {
	Query string `json:"query"`
}

type assistSearchFullResponse struct {
	Thoughts []thoughtResponse `json:"thoughts"`
}

type assistCommentRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type assistCommentResponse struct {
	Text string `json:"text"`
}

// AssistSearchFull returns full note records chosen by an LLM relevance pass
// over the owner's entire corpus. Unlike /search it trades latency for
// recall: every note is shown to the model, not just index neighbors.
func (s *APIV1Service) AssistSearchFull(c echo.Context) error {
	if s.LLM == nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeLLMUnavailable, "LLM service is not available"))
	}

	var req assistSearchFullRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "malformed request body"))
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "query is required"))
	}

	ctx := c.Request().Context()
	owner := ownerFrom(c)
	logger := observability.NewRequestContext(slog.Default(), "llm_full_scan", owner)

	thoughts, err := s.Store.ListAllThoughtsByOwner(ctx, owner)
	if err != nil {
		return errorJSON(c, serrors.Wrap(serrors.ErrCodeInternal, "failed to load thoughts", err))
	}
	if len(thoughts) == 0 {
		return c.JSON(http.StatusOK, assistSearchFullResponse{Thoughts: []thoughtResponse{}})
	}

	selected, err := s.selectRelevant(ctx, query, thoughts)
	if err != nil {
		// The model produced something unusable. Lexical search still gives
		// the caller an answer.
		logger.Warn("full-scan selection failed, falling back to lexical",
			slog.String("error", err.Error()))
		selected, err = s.lexicalFallbackThoughts(ctx, owner, query, thoughts)
		if err != nil {
			return errorJSON(c, err)
		}
	}

	logger.Info("full-scan selection complete",
		slog.Int("corpus", len(thoughts)),
		slog.Int("selected", len(selected)),
		slog.Int64(observability.LogFieldDuration, logger.DurationMs()))

	out := make([]thoughtResponse, 0, len(selected))
	for _, t := range selected {
		out = append(out, convertThought(t))
	}
	return c.JSON(http.StatusOK, assistSearchFullResponse{Thoughts: out})
}

// selectRelevant asks the LLM for the indexes of relevant thoughts and
// resolves them. The reply must be a bare JSON array of numbers; anything
// else is an error for the caller to degrade on.
func (s *APIV1Service) selectRelevant(ctx context.Context, query string, thoughts []*store.Thought) ([]*store.Thought, error) {
	var list strings.Builder
	for i, t := range thoughts {
		summary := t.Summary
		if summary == "" {
			summary = snippet(t.Content)
		}
		fmt.Fprintf(&list, "%d. %s - %s\n", i+1, t.Title, summary)
	}

	var reply string
	err := timeout.Do(ctx, timeout.LLMTimeout, func(ctx context.Context) error {
		var chatErr error
		reply, chatErr = s.LLM.Chat(ctx, []ai.Message{
			ai.UserMessage(fmt.Sprintf(searchFullPrompt, query, list.String())),
		})
		return chatErr
	})
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrCodeLLMUnavailable, "relevance pass failed", err)
	}

	var indexes []int
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &indexes); err != nil {
		return nil, serrors.Wrap(serrors.ErrCodeInternal, "relevance reply was not a number array", err)
	}

	selected := make([]*store.Thought, 0, len(indexes))
	for _, n := range indexes {
		if n >= 1 && n <= len(thoughts) {
			selected = append(selected, thoughts[n-1])
		}
	}
	return selected, nil
}

func (s *APIV1Service) lexicalFallbackThoughts(ctx context.Context, owner, query string, thoughts []*store.Thought) ([]*store.Thought, error) {
	result, err := s.Lexical.Search(ctx, retrieval.Request{Owner: owner, Query: query})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.Thought, len(thoughts))
	for _, t := range thoughts {
		byID[t.ID] = t
	}
	selected := make([]*store.Thought, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if t, ok := byID[hit.Metadata.ID]; ok {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

// AssistComment retrieves the best matches for a query and turns them into
// one short spoken-style comment. Without an LLM it still answers with a
// templated line built from the best hit.
func (s *APIV1Service) AssistComment(c echo.Context) error {
	var req assistCommentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "malformed request body"))
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "query is required"))
	}

	ctx := c.Request().Context()
	engine := s.Semantic
	if engine == nil {
		engine = s.Lexical
	}

	result, err := engine.Search(ctx, retrieval.Request{
		Owner: ownerFrom(c),
		Query: query,
		Limit: req.TopK,
	})
	if err != nil {
		return errorJSON(c, err)
	}
	if len(result.Hits) == 0 {
		return c.JSON(http.StatusOK, assistCommentResponse{
			Text: "I couldn't find anything in your notes about that.",
		})
	}

	text := s.commentFromHits(ctx, query, result.Hits)
	return c.JSON(http.StatusOK, assistCommentResponse{Text: text})
}

func (s *APIV1Service) commentFromHits(ctx context.Context, query string, hits []*retrieval.Hit) string {
	best := hits[0]
	fallback := fmt.Sprintf("You have a note about that: %s.", commentSubject(best))

	if s.LLM == nil {
		return fallback
	}

	var notes strings.Builder
	for i, hit := range hits {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&notes, "- %s\n", snippet(hit.Document))
	}

	var reply string
	err := timeout.Do(ctx, timeout.LLMTimeout, func(ctx context.Context) error {
		var chatErr error
		reply, chatErr = s.LLM.Chat(ctx, []ai.Message{
			ai.UserMessage(fmt.Sprintf(commentPrompt, query, notes.String())),
		})
		return chatErr
	})
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		return fallback
	}
	return capWords(reply, maxCommentWords)
}

func commentSubject(hit *retrieval.Hit) string {
	if hit.Metadata.Title != "" {
		return hit.Metadata.Title
	}
	return snippet(hit.Document)
}

// capWords hard-limits a sentence to n words.
func capWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
