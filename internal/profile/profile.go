package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where thoughtstream stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// APIKey is the shared secret checked against the x-api-key header.
	// Empty value disables the check (open access).
	APIKey string
	// AllowOrigins is a comma-separated list of allowed CORS origins.
	AllowOrigins string

	// AI Configuration
	AIEnabled         bool   // THOUGHTSTREAM_AI_ENABLED
	AILLMProvider     string // THOUGHTSTREAM_AI_LLM_PROVIDER (default: groq)
	AILLMModel        string // THOUGHTSTREAM_AI_LLM_MODEL (default: llama-3.3-70b-versatile)
	AIGroqAPIKey      string // THOUGHTSTREAM_AI_GROQ_API_KEY
	AIGroqBaseURL     string // THOUGHTSTREAM_AI_GROQ_BASE_URL (default: https://api.groq.com/openai/v1)
	AIOpenAIAPIKey    string // THOUGHTSTREAM_AI_OPENAI_API_KEY
	AIOpenAIBaseURL   string // THOUGHTSTREAM_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIOllamaBaseURL   string // THOUGHTSTREAM_AI_OLLAMA_BASE_URL (default: http://localhost:11434)
	AIEmbeddingModel  string // THOUGHTSTREAM_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDim    int    // THOUGHTSTREAM_AI_EMBEDDING_DIM (default: 1536)
	AITranscribeModel string // THOUGHTSTREAM_AI_TRANSCRIBE_MODEL (default: whisper-large-v3-turbo)
	AISpeechModel     string // THOUGHTSTREAM_AI_SPEECH_MODEL (default: playai-tts)

	// Vector index configuration
	VectorBackend    string // THOUGHTSTREAM_VECTOR_BACKEND (chroma or postgres, default: chroma)
	ChromaURL        string // THOUGHTSTREAM_CHROMA_URL (default: http://localhost:8000)
	ChromaCollection string // THOUGHTSTREAM_CHROMA_COLLECTION (default: memory)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIGroqAPIKey != "" || p.AIOpenAIAPIKey != "" || p.AIOllamaBaseURL != "")
}

// AllowedOrigins returns the parsed CORS origin list.
func (p *Profile) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(p.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from THOUGHTSTREAM_* environment variables.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("THOUGHTSTREAM_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("THOUGHTSTREAM_ADDR")
	}
	if p.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("THOUGHTSTREAM_PORT")); err == nil {
			p.Port = port
		}
	}
	if p.Data == "" {
		p.Data = getEnvOrDefault("THOUGHTSTREAM_DATA", ".")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("THOUGHTSTREAM_DRIVER", "sqlite")
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("THOUGHTSTREAM_DSN")
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv("THOUGHTSTREAM_API_KEY")
	}
	if p.AllowOrigins == "" {
		p.AllowOrigins = getEnvOrDefault("THOUGHTSTREAM_ALLOW_ORIGINS", "http://localhost:8081")
	}

	p.AIEnabled = getEnvOrDefault("THOUGHTSTREAM_AI_ENABLED", "false") == "true"
	p.AILLMProvider = getEnvOrDefault("THOUGHTSTREAM_AI_LLM_PROVIDER", "groq")
	p.AILLMModel = getEnvOrDefault("THOUGHTSTREAM_AI_LLM_MODEL", "llama-3.3-70b-versatile")
	p.AIGroqAPIKey = os.Getenv("THOUGHTSTREAM_AI_GROQ_API_KEY")
	p.AIGroqBaseURL = getEnvOrDefault("THOUGHTSTREAM_AI_GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	p.AIOpenAIAPIKey = os.Getenv("THOUGHTSTREAM_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("THOUGHTSTREAM_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIOllamaBaseURL = getEnvOrDefault("THOUGHTSTREAM_AI_OLLAMA_BASE_URL", "http://localhost:11434")
	p.AIEmbeddingModel = getEnvOrDefault("THOUGHTSTREAM_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	if dim, err := strconv.Atoi(getEnvOrDefault("THOUGHTSTREAM_AI_EMBEDDING_DIM", "1536")); err == nil {
		p.AIEmbeddingDim = dim
	}
	p.AITranscribeModel = getEnvOrDefault("THOUGHTSTREAM_AI_TRANSCRIBE_MODEL", "whisper-large-v3-turbo")
	p.AISpeechModel = getEnvOrDefault("THOUGHTSTREAM_AI_SPEECH_MODEL", "playai-tts")

	p.VectorBackend = getEnvOrDefault("THOUGHTSTREAM_VECTOR_BACKEND", "chroma")
	p.ChromaURL = getEnvOrDefault("THOUGHTSTREAM_CHROMA_URL", "http://localhost:8000")
	p.ChromaCollection = getEnvOrDefault("THOUGHTSTREAM_CHROMA_COLLECTION", "memory")
}

// Validate validates the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Addr == "" {
		p.Addr = "127.0.0.1"
	}
	if p.Port == 0 {
		p.Port = 8081
	}
	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = fmt.Sprintf("%s/thoughtstream_%s.db", p.Data, p.Mode)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}
	switch p.VectorBackend {
	case "chroma", "postgres":
	default:
		return errors.Errorf("unknown vector backend %q: only 'chroma' and 'postgres' are supported", p.VectorBackend)
	}
	return nil
}
