package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds runtime settings read from the environment.
type AppConfig struct {
	Port     string
	LogLevel string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	MongoURI    string
	MongoDB     string
	PostgresURI string
	SQLitePath  string
	RedisAddr   string

	LLMProvider          string // vertex|openai
	VertexProjectID      string
	VertexLocation       string
	VertexModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	Scorer               string // heuristic|llm

	GenerationTimeout    time.Duration
	HighQualityThreshold int
	DedupWindow          int
	ChoicesEnabled       bool
	LearnedCacheTTL      time.Duration

	TargetPlatform  string
	EligibleAvatars []string
	TransferMode    string // inline|stream

	GCSBucket                string
	ScenarioCatalogObject    string
	TranscriptArchiveEnabled bool
	GoogleCredentialsFile    string
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		JWTIssuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		JWTAudience: os.Getenv("SUPABASE_JWT_AUDIENCE"),

		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getEnv("MONGO_DB", "avatar_training"),
		PostgresURI: os.Getenv("POSTGRES_URI"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/learned.db"),
		RedisAddr:   firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),

		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", "vertex")),
		VertexProjectID:      os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:       getEnv("VERTEX_LOCATION", "us-central1"),
		VertexModel:          getEnv("VERTEX_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		Scorer:               strings.ToLower(getEnv("SCORER", "heuristic")),

		GenerationTimeout:    getEnvDuration("GENERATION_TIMEOUT", 20*time.Second),
		HighQualityThreshold: getEnvInt("HIGH_QUALITY_THRESHOLD", 80),
		DedupWindow:          getEnvInt("DEDUP_WINDOW", 16),
		ChoicesEnabled:       getEnvBool("CHOICES_ENABLED", true),
		LearnedCacheTTL:      getEnvDuration("LEARNED_CACHE_TTL", 10*time.Minute),

		TargetPlatform:  getEnv("TRANSFER_TARGET_PLATFORM", "brezcode"),
		EligibleAvatars: splitList(getEnv("TRANSFER_ELIGIBLE_AVATARS", "dr_sakura")),
		TransferMode:    strings.ToLower(getEnv("TRANSFER_MODE", "inline")),

		GCSBucket:                os.Getenv("GCS_BUCKET"),
		ScenarioCatalogObject:    os.Getenv("SCENARIO_CATALOG_OBJECT"),
		TranscriptArchiveEnabled: getEnvBool("TRANSCRIPT_ARCHIVE_ENABLED", false),
		GoogleCredentialsFile:    os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required"))
	}
	switch c.LLMProvider {
	case "vertex":
		if c.VertexProjectID == "" {
			errs = append(errs, errors.New("VERTEX_PROJECT_ID is required when LLM_PROVIDER=vertex"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.Scorer != "heuristic" && c.Scorer != "llm" {
		errs = append(errs, fmt.Errorf("unknown SCORER %q", c.Scorer))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.HighQualityThreshold < 0 || c.HighQualityThreshold > 100 {
		errs = append(errs, errors.New("HIGH_QUALITY_THRESHOLD must be within 0..100"))
	}
	if c.DedupWindow < 0 {
		errs = append(errs, errors.New("DEDUP_WINDOW must not be negative"))
	}
	switch c.TransferMode {
	case "inline":
	case "stream":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("TRANSFER_MODE=stream needs REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSFER_MODE %q", c.TransferMode))
	}
	if (c.ScenarioCatalogObject != "" || c.TranscriptArchiveEnabled) && c.GCSBucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required for the scenario catalog object or transcript archive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
