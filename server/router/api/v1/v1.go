// Package v1 implements the JSON HTTP API.
package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/enrich"
	"github.com/hrygo/thoughtstream/plugin/ai/speech"
	"github.com/hrygo/thoughtstream/plugin/ai/variation"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/server/middleware"
	"github.com/hrygo/thoughtstream/server/retrieval"
	"github.com/hrygo/thoughtstream/store"
)

// APIV1Service bundles every service the v1 routes depend on.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	LLM       ai.LLMService
	Extractor enrich.Extractor
	Speech    *speech.Service
	Index     vector.Index

	Semantic retrieval.Retriever
	Lexical  retrieval.Retriever

	// Tracker, when set, is told about deleted thought ids so the reindex
	// loop does not keep treating them as indexed.
	Tracker IndexTracker

	rateLimiter *middleware.RateLimiter
}

// IndexTracker receives thought deletions. The embedding runner implements
// it.
type IndexTracker interface {
	Forget(ids []string)
}

// NewAPIV1Service wires the v1 service from the profile. The vector index is
// injected because its construction (an HTTP client or a database handle)
// belongs to the server bootstrap, not to routing.
func NewAPIV1Service(secret string, p *profile.Profile, s *store.Store, index vector.Index) *APIV1Service {
	service := &APIV1Service{
		Secret:      secret,
		Profile:     p,
		Store:       s,
		Index:       index,
		Extractor:   enrich.NewFallbackExtractor(),
		Lexical:     retrieval.NewLexicalRetriever(s),
		rateLimiter: middleware.NewRateLimiter(time.Second/2, 5),
	}

	if p.IsAIEnabled() {
		aiConfig := ai.NewConfigFromProfile(p)
		if err := aiConfig.Validate(); err != nil {
			slog.Warn("AI configuration invalid, running without AI services", "error", err)
		} else {
			llm, err := ai.NewLLMService(&aiConfig.LLM)
			if err != nil {
				slog.Warn("LLM service unavailable", "error", err)
			} else {
				service.LLM = llm
				service.Extractor = enrich.NewExtractor(llm)
			}
			service.Speech = speech.NewService(&aiConfig.Speech)
		}
	}

	if index != nil {
		var gen variation.Generator
		if service.LLM != nil {
			gen = variation.NewGenerator(service.LLM)
		}
		service.Semantic = retrieval.NewMultiQueryRetriever(index, gen)
	}

	return service
}

// Register mounts the v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/v1", s.authMiddleware)

	g.POST("/thoughts", s.CreateThought)
	g.GET("/thoughts", s.ListThoughts)
	g.DELETE("/thoughts/clear", s.ClearThoughts)
	g.POST("/thoughts/transcribe", s.TranscribeThought)

	g.POST("/search", s.Search)
	g.POST("/search/lexical", s.LexicalSearch)

	assist := g.Group("/assist", middleware.OwnerRateLimit(s.rateLimiter, ownerContextKey))
	assist.POST("/search-full", s.AssistSearchFull)
	assist.POST("/comment", s.AssistComment)

	g.POST("/tts", s.Synthesize)

	// Voice-assistant tool webhook, same contract as /v1/search.
	g.POST("/vapi/tools/search", s.Search)
}

// httpStatus maps service error codes to HTTP statuses.
func httpStatus(err error) int {
	switch serrors.CodeOf(err) {
	case serrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case serrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case serrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case serrors.ErrCodeLLMUnavailable, serrors.ErrCodeRetrievalUnavailable, serrors.ErrCodeSpeechUnavailable:
		return http.StatusServiceUnavailable
	case serrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorJSON renders a service error without leaking internals.
func errorJSON(c echo.Context, err error) error {
	message := "internal error"
	if e, ok := err.(*serrors.ServiceError); ok {
		message = e.Message
	}
	return c.JSON(httpStatus(err), map[string]string{
		"code":    string(serrors.CodeOf(err)),
		"message": message,
	})
}
