package ai

import (
	"errors"

	"github.com/hrygo/thoughtstream/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM       LLMConfig
	Embedding EmbeddingConfig
	Speech    SpeechConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // groq, openai, ollama
	Model       string // llama-3.3-70b-versatile
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.4
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // groq, openai
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
}

// SpeechConfig represents transcription and synthesis configuration.
type SpeechConfig struct {
	APIKey          string
	BaseURL         string
	TranscribeModel string // whisper-large-v3-turbo
	SpeechModel     string // playai-tts
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		MaxTokens:   1024,
		Temperature: 0.4,
	}
	switch p.AILLMProvider {
	case "groq":
		cfg.LLM.APIKey = p.AIGroqAPIKey
		cfg.LLM.BaseURL = p.AIGroqBaseURL
	case "openai":
		cfg.LLM.APIKey = p.AIOpenAIAPIKey
		cfg.LLM.BaseURL = p.AIOpenAIBaseURL
	case "ollama":
		cfg.LLM.BaseURL = p.AIOllamaBaseURL
	}

	// Embeddings go to OpenAI when a key is present, otherwise to the
	// Groq-compatible endpoint.
	cfg.Embedding = EmbeddingConfig{
		Model:      p.AIEmbeddingModel,
		Dimensions: p.AIEmbeddingDim,
	}
	if p.AIOpenAIAPIKey != "" {
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.APIKey = p.AIOpenAIAPIKey
		cfg.Embedding.BaseURL = p.AIOpenAIBaseURL
	} else {
		cfg.Embedding.Provider = "groq"
		cfg.Embedding.APIKey = p.AIGroqAPIKey
		cfg.Embedding.BaseURL = p.AIGroqBaseURL
	}

	cfg.Speech = SpeechConfig{
		APIKey:          p.AIGroqAPIKey,
		BaseURL:         p.AIGroqBaseURL,
		TranscribeModel: p.AITranscribeModel,
		SpeechModel:     p.AISpeechModel,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	return nil
}
