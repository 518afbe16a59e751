// Package enrich derives structured metadata from raw note content.
package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
)

const (
	maxTitleLength   = 80
	maxSummaryLength = 200
)

// Metadata is the enrichment record for a note. All fields are always set.
type Metadata struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
	Entities       []string `json:"entities"`
	Interpretation string   `json:"interpretation"`
}

// Extractor derives metadata from note content. Extract never fails: when the
// LLM is unavailable or returns an unusable payload, the deterministic local
// derivation is used instead.
type Extractor interface {
	Extract(ctx context.Context, content, providedTitle string) Metadata
}

type llmExtractor struct {
	llm ai.LLMService
}

// NewExtractor creates an LLM-backed Extractor.
func NewExtractor(llm ai.LLMService) Extractor {
	return &llmExtractor{llm: llm}
}

// NewFallbackExtractor creates an Extractor that only performs the local
// derivation. Used when AI is disabled.
func NewFallbackExtractor() Extractor {
	return &llmExtractor{}
}

const systemPrompt = "You are a JSON API. Return only a compact JSON object with keys: " +
	"title, summary, tags, entities, interpretation. The 'tags' and 'entities' must be arrays of strings. " +
	"'interpretation' is your concise explanation (1-3 sentences) of what the user meant. " +
	"Do not include any extra text."

func (e *llmExtractor) Extract(ctx context.Context, content, providedTitle string) Metadata {
	if e.llm == nil {
		return Fallback(content, providedTitle)
	}

	var response string
	err := timeout.Do(ctx, timeout.LLMTimeout, func(ctx context.Context) error {
		var chatErr error
		response, chatErr = e.llm.Chat(ctx, []ai.Message{
			ai.SystemPrompt(systemPrompt),
			ai.UserMessage(content),
		})
		return chatErr
	})
	if err != nil {
		return Fallback(content, providedTitle)
	}

	// Strict parse-then-validate; no substring scanning of malformed output.
	var meta Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &meta); err != nil {
		return Fallback(content, providedTitle)
	}
	return normalize(meta, content, providedTitle)
}

// normalize fills missing fields of a parsed record so the result is always
// complete.
func normalize(meta Metadata, content, providedTitle string) Metadata {
	if meta.Title == "" {
		if providedTitle != "" {
			meta.Title = providedTitle
		} else {
			meta.Title = truncate(firstLine(content), maxTitleLength)
		}
	}
	if meta.Summary == "" {
		meta.Summary = truncate(strings.TrimSpace(content), maxSummaryLength)
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if meta.Entities == nil {
		meta.Entities = []string{}
	}
	if meta.Interpretation == "" {
		meta.Interpretation = meta.Summary
	}
	return meta
}

// Fallback is the deterministic local derivation used when no LLM result is
// available.
func Fallback(content, providedTitle string) Metadata {
	title := providedTitle
	if title == "" {
		title = truncate(firstLine(content), maxTitleLength)
	}
	return Metadata{
		Title:          title,
		Summary:        truncate(strings.TrimSpace(content), maxSummaryLength),
		Tags:           []string{},
		Entities:       []string{},
		Interpretation: content,
	}
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return line
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
