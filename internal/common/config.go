package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
	Server   ServerConfig
	Log      LogConfig
	Tracing  TracingConfig
}

// LLMConfig holds language-model gateway configuration
type LLMConfig struct {
	Provider    string // openai | gemini | ollama
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// OCRConfig holds document extraction configuration
type OCRConfig struct {
	Pdftotext    string
	Pdftoppm     string
	Tesseract    string
	Lang         string
	TessdataDir  string
	DPI          int
	MaxPages     int
	OCRFallback  bool
	DocumentRoot string // confines which PDFs may be read; empty means unrestricted
}

// PipelineConfig holds orchestration limits
type PipelineConfig struct {
	Concurrency      int
	CallTimeout      time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	RetryMaxBackoff  time.Duration
	MaxSearchResults int
	StrictSummaries  bool
}

// CacheConfig selects the page-summary cache backend
type CacheConfig struct {
	Driver string // none | memory | sqlite | postgres | redis
	DSN    string
	TTL    time.Duration
}

// ServerConfig holds daemon listener configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // text | json
	File   string
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// LoadConfig loads configuration from a .env file (when present) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	return &Config{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       getEnv("LLM_MODEL", defaultModel(provider)),
			APIKey:      getEnv("LLM_API_KEY", providerAPIKey(provider)),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:     getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:    getEnv("TESSERACT_BIN", "tesseract"),
			Lang:         getEnv("OCR_LANG", "eng"),
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			DPI:          getEnvAsInt("OCR_DPI", 300),
			MaxPages:     getEnvAsInt("OCR_MAX_PAGES", 0),
			OCRFallback:  getEnvAsBool("OCR_FALLBACK", false),
			DocumentRoot: getEnv("DOCUMENT_ROOT", ""),
		},
		Pipeline: PipelineConfig{
			Concurrency:      getEnvAsInt("PIPELINE_CONCURRENCY", 8),
			CallTimeout:      getEnvAsDuration("PIPELINE_CALL_TIMEOUT", 60*time.Second),
			RetryAttempts:    getEnvAsInt("PIPELINE_RETRY_ATTEMPTS", 3),
			RetryBackoff:     getEnvAsDuration("PIPELINE_RETRY_BACKOFF", 500*time.Millisecond),
			RetryMaxBackoff:  getEnvAsDuration("PIPELINE_RETRY_MAX_BACKOFF", 5*time.Second),
			MaxSearchResults: getEnvAsInt("PIPELINE_MAX_SEARCH_RESULTS", 10),
			StrictSummaries:  getEnvAsBool("PIPELINE_STRICT_SUMMARIES", false),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(getEnv("CACHE_DRIVER", "none")),
			DSN:    getEnv("CACHE_DSN", ""),
			TTL:    getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8081"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":8080"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "docverify"),
		},
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "ollama":
		return "llama3:instruct"
	default:
		return "gpt-4o-mini"
	}
}

func providerAPIKey(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required for provider "+c.LLM.Provider, ErrInvalidInput)
		}
	case "ollama":
	default:
		return NewAppError("CONFIG_ERROR", "unknown LLM_PROVIDER "+c.LLM.Provider, ErrInvalidInput)
	}
	if c.LLM.Model == "" {
		return NewAppError("CONFIG_ERROR", "LLM_MODEL is required", ErrInvalidInput)
	}
	if c.Pipeline.MaxSearchResults <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MAX_SEARCH_RESULTS must be positive", ErrInvalidInput)
	}
	if c.Pipeline.RetryAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_RETRY_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	switch c.Cache.Driver {
	case "none", "memory":
	case "sqlite", "postgres", "redis":
		if c.Cache.DSN == "" {
			return NewAppError("CONFIG_ERROR", "CACHE_DSN is required for cache driver "+c.Cache.Driver, ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown CACHE_DRIVER "+c.Cache.Driver, ErrInvalidInput)
	}
	return nil
}
