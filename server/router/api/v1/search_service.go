package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/server/retrieval"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type searchResult struct {
	ThoughtID string   `json:"thoughtId"`
	Title     string   `json:"title"`
	Snippet   string   `json:"snippet"`
	// Score is the raw distance from the index. Lower means closer.
	Score      float64  `json:"score"`
	MatchCount int      `json:"matchCount"`
	MatchedBy  []string `json:"matchedBy"`
	CreatedAt  string   `json:"createdAt"`
}

type searchResponse struct {
	Results    []searchResult `json:"results"`
	Variations []string       `json:"variations,omitempty"`
}

// Search answers a query with the multi-query semantic engine. Deployments
// without a vector index degrade to the lexical engine behind the same
// response shape.
func (s *APIV1Service) Search(c echo.Context) error {
	engine := s.Semantic
	if engine == nil {
		engine = s.Lexical
	}
	return s.runSearch(c, engine)
}

// LexicalSearch answers a query from the full-text index only.
func (s *APIV1Service) LexicalSearch(c echo.Context) error {
	return s.runSearch(c, s.Lexical)
}

func (s *APIV1Service) runSearch(c echo.Context, engine retrieval.Retriever) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "malformed request body"))
	}

	result, err := engine.Search(c.Request().Context(), retrieval.Request{
		Owner: ownerFrom(c),
		Query: req.Query,
		Limit: req.TopK,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	results := make([]searchResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, searchResult{
			ThoughtID:  hit.Metadata.ID,
			Title:      hit.Metadata.Title,
			Snippet:    snippet(hit.Document),
			Score:      hit.Distance,
			MatchCount: hit.MatchCount,
			MatchedBy:  hit.MatchedBy,
			CreatedAt:  hit.Metadata.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, searchResponse{
		Results:    results,
		Variations: result.Variations,
	})
}

// maxSnippetLength caps result snippets, counted in runes so multi-byte
// content is not cut short.
const maxSnippetLength = 200

// snippet truncates a document for the response, appending an ellipsis only
// when something was cut.
func snippet(document string) string {
	runes := []rune(document)
	if len(runes) <= maxSnippetLength {
		return document
	}
	return string(runes[:maxSnippetLength]) + "..."
}
