package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Similarity SimilarityConfig
	Committee  CommitteeConfig
	Workflow   WorkflowConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SimilarityConfig tunes the title similarity ranking.
type SimilarityConfig struct {
	TopK              int
	WeightTitle       float64
	WeightKeywords    float64
	WeightAbstract    float64
	HighThreshold     float64
	MediumThreshold   float64
	Stemmer           string
	ParallelThreshold int
	Workers           int
	CorpusCacheTTL    time.Duration
}

// CommitteeConfig carries the required-role policy table per exam type.
type CommitteeConfig struct {
	MaxExaminers  int
	RequiredRoles map[string][]string
	MinExaminers  map[string]int
}

// WorkflowConfig controls exam defaults and keyed lock behaviour.
type WorkflowConfig struct {
	DefaultExamDuration time.Duration
	LockTTL             time.Duration
	LockWait            time.Duration
	AuditWorkers        int
	AuditBuffer         int
}

var examTypes = []string{"proposal", "result", "final"}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Similarity = SimilarityConfig{
		TopK:              v.GetInt("SIMILARITY_TOP_K"),
		WeightTitle:       v.GetFloat64("SIMILARITY_WEIGHT_TITLE"),
		WeightKeywords:    v.GetFloat64("SIMILARITY_WEIGHT_KEYWORDS"),
		WeightAbstract:    v.GetFloat64("SIMILARITY_WEIGHT_ABSTRACT"),
		HighThreshold:     v.GetFloat64("SIMILARITY_HIGH_THRESHOLD"),
		MediumThreshold:   v.GetFloat64("SIMILARITY_MEDIUM_THRESHOLD"),
		Stemmer:           strings.ToLower(strings.TrimSpace(v.GetString("SIMILARITY_STEMMER"))),
		ParallelThreshold: v.GetInt("SIMILARITY_PARALLEL_THRESHOLD"),
		Workers:           v.GetInt("SIMILARITY_WORKERS"),
		CorpusCacheTTL:    parseDuration(v.GetString("CORPUS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Committee = CommitteeConfig{
		MaxExaminers:  v.GetInt("COMMITTEE_MAX_EXAMINERS"),
		RequiredRoles: make(map[string][]string, len(examTypes)),
		MinExaminers:  make(map[string]int, len(examTypes)),
	}
	for _, examType := range examTypes {
		key := strings.ToUpper(examType)
		cfg.Committee.RequiredRoles[examType] = splitAndTrim(v.GetString("COMMITTEE_REQUIRED_" + key))
		cfg.Committee.MinExaminers[examType] = v.GetInt("COMMITTEE_MIN_EXAMINERS_" + key)
	}

	cfg.Workflow = WorkflowConfig{
		DefaultExamDuration: parseDuration(v.GetString("EXAM_DEFAULT_DURATION"), 2*time.Hour),
		LockTTL:             parseDuration(v.GetString("WORKFLOW_LOCK_TTL"), 10*time.Second),
		LockWait:            parseDuration(v.GetString("WORKFLOW_LOCK_WAIT"), 3*time.Second),
		AuditWorkers:        v.GetInt("AUDIT_WORKERS"),
		AuditBuffer:         v.GetInt("AUDIT_BUFFER"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "thesis_pipeline")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SIMILARITY_TOP_K", 5)
	v.SetDefault("SIMILARITY_WEIGHT_TITLE", 0.40)
	v.SetDefault("SIMILARITY_WEIGHT_KEYWORDS", 0.35)
	v.SetDefault("SIMILARITY_WEIGHT_ABSTRACT", 0.25)
	v.SetDefault("SIMILARITY_HIGH_THRESHOLD", 70)
	v.SetDefault("SIMILARITY_MEDIUM_THRESHOLD", 30)
	v.SetDefault("SIMILARITY_STEMMER", "english")
	v.SetDefault("SIMILARITY_PARALLEL_THRESHOLD", 500)
	v.SetDefault("SIMILARITY_WORKERS", 4)
	v.SetDefault("CORPUS_CACHE_TTL", "10m")

	v.SetDefault("COMMITTEE_MAX_EXAMINERS", 3)
	v.SetDefault("COMMITTEE_REQUIRED_PROPOSAL", "supervisor_1,chair")
	v.SetDefault("COMMITTEE_REQUIRED_RESULT", "supervisor_1,chair")
	v.SetDefault("COMMITTEE_REQUIRED_FINAL", "supervisor_1,supervisor_2,chair,secretary")
	v.SetDefault("COMMITTEE_MIN_EXAMINERS_PROPOSAL", 1)
	v.SetDefault("COMMITTEE_MIN_EXAMINERS_RESULT", 1)
	v.SetDefault("COMMITTEE_MIN_EXAMINERS_FINAL", 1)

	v.SetDefault("EXAM_DEFAULT_DURATION", "2h")
	v.SetDefault("WORKFLOW_LOCK_TTL", "10s")
	v.SetDefault("WORKFLOW_LOCK_WAIT", "3s")
	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_BUFFER", 256)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
