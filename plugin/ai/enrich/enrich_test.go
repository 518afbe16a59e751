package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/thoughtstream/plugin/ai"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	return s.response, s.err
}

func TestExtractParsesStrictJSON(t *testing.T) {
	llm := &stubLLM{response: `{"title":"Fishing startup","summary":"An idea about fishing.","tags":["startup","фишинг"],"entities":["lake"],"interpretation":"The user wants to build a fishing business."}`}
	meta := NewExtractor(llm).Extract(context.Background(), "some fishing note", "")

	assert.Equal(t, "Fishing startup", meta.Title)
	assert.Equal(t, "An idea about fishing.", meta.Summary)
	assert.Equal(t, []string{"startup", "фишинг"}, meta.Tags)
	assert.Equal(t, []string{"lake"}, meta.Entities)
	assert.Equal(t, "The user wants to build a fishing business.", meta.Interpretation)
}

func TestExtractFallsBackOnMalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"prose around json", `Sure! Here you go: {"title":"x"}`},
		{"plain prose", "I could not process that."},
		{"empty", ""},
		{"wrong type", `["not","an","object"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{response: tt.response}
			meta := NewExtractor(llm).Extract(context.Background(), "remember the pitch deck\nsecond line", "")
			assert.Equal(t, Fallback("remember the pitch deck\nsecond line", ""), meta)
		})
	}
}

func TestExtractFallsBackOnLLMError(t *testing.T) {
	llm := &stubLLM{err: errors.New("timeout")}
	content := "call mom tomorrow"
	meta := NewExtractor(llm).Extract(context.Background(), content, "Reminder")

	assert.Equal(t, "Reminder", meta.Title)
	assert.Equal(t, content, meta.Summary)
	assert.Empty(t, meta.Tags)
	assert.Empty(t, meta.Entities)
	assert.Equal(t, content, meta.Interpretation)
}

func TestFallbackDerivation(t *testing.T) {
	longLine := strings.Repeat("a", 100)
	content := longLine + "\n" + strings.Repeat("b", 150)

	meta := Fallback(content, "")
	assert.Equal(t, longLine[:80], meta.Title)
	assert.Len(t, meta.Summary, 200)
	assert.Equal(t, content, meta.Interpretation)
	assert.NotNil(t, meta.Tags)
	assert.NotNil(t, meta.Entities)
}

func TestFallbackIsDeterministic(t *testing.T) {
	a := Fallback("short note", "T")
	b := Fallback("short note", "T")
	assert.Equal(t, a, b)
	assert.Equal(t, "T", a.Title)
	assert.Equal(t, "short note", a.Summary)
}

func TestNormalizeFillsPartialRecord(t *testing.T) {
	llm := &stubLLM{response: `{"title":"","summary":"","tags":null,"entities":null,"interpretation":""}`}
	meta := NewExtractor(llm).Extract(context.Background(), "bare content", "")

	assert.Equal(t, "bare content", meta.Title)
	assert.Equal(t, "bare content", meta.Summary)
	assert.Equal(t, []string{}, meta.Tags)
	assert.Equal(t, []string{}, meta.Entities)
	assert.Equal(t, "bare content", meta.Interpretation)
}

func TestFallbackExtractorSkipsLLM(t *testing.T) {
	meta := NewFallbackExtractor().Extract(context.Background(), "offline note", "")
	assert.Equal(t, Fallback("offline note", ""), meta)
}
