// Package variation generates semantically related rephrasings of a search
// query. The rephrasings diversify vector-search recall without drifting from
// the original topic.
package variation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
)

// MaxVariations is the number of rephrasings requested from the LLM.
const MaxVariations = 5

// Generator produces query variations for a non-empty query.
// The result is an ordered list of at most MaxVariations non-empty strings.
// Fewer than MaxVariations entries is not an error; the caller decides how to
// handle a zero-length or failed result.
type Generator interface {
	Generate(ctx context.Context, query string) ([]string, error)
}

type llmGenerator struct {
	llm ai.LLMService
}

// NewGenerator creates an LLM-backed Generator.
func NewGenerator(llm ai.LLMService) Generator {
	return &llmGenerator{llm: llm}
}

const promptTemplate = `Generate 5 focused search query variations for: "%s"

Create variations that stay relevant to the core topic:
1. Original query (keep the same meaning)
2. Use synonyms for key terms only
3. Slightly shorter version
4. Add one relevant detail
5. Rephrase using different words but same intent

Keep all variations closely related to the original query's meaning.

Output only the queries, numbered 1-5:

1.`

func (g *llmGenerator) Generate(ctx context.Context, query string) ([]string, error) {
	var content string
	err := timeout.Do(ctx, timeout.LLMTimeout, func(ctx context.Context) error {
		var chatErr error
		content, chatErr = g.llm.Chat(ctx, []ai.Message{
			ai.UserMessage(fmt.Sprintf(promptTemplate, query)),
		})
		return chatErr
	})
	if err != nil {
		return nil, err
	}
	return ParseNumberedList(content), nil
}

// ParseNumberedList extracts variations from a numbered list response.
// A line counts when it starts with a digit and contains a '.'; the variation
// is everything after the first '.', trimmed. Lines that do not match, or are
// empty after trimming, are dropped. At most MaxVariations entries are
// returned, in original order.
func ParseNumberedList(content string) []string {
	var variations []string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !unicode.IsDigit(rune(trimmed[0])) {
			continue
		}
		_, rest, found := strings.Cut(trimmed, ".")
		if !found {
			continue
		}
		if v := strings.TrimSpace(rest); v != "" {
			variations = append(variations, v)
		}
		if len(variations) == MaxVariations {
			break
		}
	}
	return variations
}
