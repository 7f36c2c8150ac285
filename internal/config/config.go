package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Router   RouterConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	ApiVersion         string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini        string
	HuggingFace         string
	Jina                string
	ClientApiKey        string // value expected in the RethinkAI-API-Key header
	InteractionLogTopic string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "gemini", "ollama", "huggingface"
	LLMModel          string
	LLMBaseURL        string
}

type RouterConfig struct {
	KDefault            int
	KMax                int
	RowLimit            int
	MaxDistance         float64
	IdleTTLMinutes      int
	MaxSessions         int
	TurnDeadlineSeconds int
	HistoryWindow       int
	SchemaCacheMinutes  int
	TempPlanReuse       float64
	TempClassifyMode    float64
	TempDraftSQL        float64
	TempDraftAnswer     float64
	TempMerge           float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			ApiVersion:         getEnv("API_VERSION", "2.0.0"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:         getEnv("HUGGINGFACE_API_KEY", ""),
			Jina:                getEnv("JINA_API_KEY", ""),
			ClientApiKey:        getEnv("CLIENT_API_KEY", ""),
			InteractionLogTopic: getEnv("INTERACTION_LOG_TOPIC_NAME", "INTERACTION_LOG"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-2.0-flash"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		},
		Router: RouterConfig{
			KDefault:            getEnvAsInt("ROUTER_K_DEFAULT", 5),
			KMax:                getEnvAsInt("ROUTER_K_MAX", 10),
			RowLimit:            getEnvAsInt("ROUTER_ROW_LIMIT", 500),
			MaxDistance:         getEnvAsFloat("ROUTER_MAX_DISTANCE", 0.9),
			IdleTTLMinutes:      getEnvAsInt("ROUTER_IDLE_TTL_MINUTES", 60),
			MaxSessions:         getEnvAsInt("ROUTER_MAX_SESSIONS", 100),
			TurnDeadlineSeconds: getEnvAsInt("ROUTER_TURN_DEADLINE_SECONDS", 30),
			HistoryWindow:       getEnvAsInt("ROUTER_HISTORY_WINDOW", 10),
			SchemaCacheMinutes:  getEnvAsInt("ROUTER_SCHEMA_CACHE_MINUTES", 10),
			TempPlanReuse:       getEnvAsFloat("ROUTER_TEMP_PLAN_REUSE", 0.0),
			TempClassifyMode:    getEnvAsFloat("ROUTER_TEMP_CLASSIFY_MODE", 0.0),
			TempDraftSQL:        getEnvAsFloat("ROUTER_TEMP_DRAFT_SQL", 0.1),
			TempDraftAnswer:     getEnvAsFloat("ROUTER_TEMP_DRAFT_ANSWER", 0.2),
			TempMerge:           getEnvAsFloat("ROUTER_TEMP_MERGE", 0.3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
