// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Kafka, Redis, Dictionaries, Corpus,
// Tokenizer, Scoring, etc.).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Dictionaries DictionariesConfig `yaml:"dictionaries"`
	Corpus       CorpusConfig       `yaml:"corpus"`
	Tokenizer    TokenizerConfig    `yaml:"tokenizer"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers         []string      `yaml:"brokers"`
	ConsumerGroup   string        `yaml:"consumerGroup"`
	Topics          KafkaTopics   `yaml:"topics"`
	BatchSize       int           `yaml:"batchSize"`
	FlushInterval   time.Duration `yaml:"flushInterval"`
	HandlerAttempts int           `yaml:"handlerAttempts"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ScoreRequests string `yaml:"scoreRequests"`
	ScoreResults  string `yaml:"scoreResults"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// TermListConfig points at a newline-delimited term list.
type TermListConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// WeightedDictionaryConfig points at a tabular term → weight file.
type WeightedDictionaryConfig struct {
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	TermColumn   string `yaml:"termColumn"`
	WeightColumn string `yaml:"weightColumn"`
}

// SentimentConfig names the two term lists used for sentiment scoring.
type SentimentConfig struct {
	Positive string `yaml:"positive"`
	Negative string `yaml:"negative"`
}

// DictionariesConfig lists every dictionary loaded at startup.
type DictionariesConfig struct {
	TermLists []TermListConfig           `yaml:"termLists"`
	Weighted  []WeightedDictionaryConfig `yaml:"weighted"`
	Sentiment SentimentConfig            `yaml:"sentiment"`
}

// CorpusConfig describes where documents come from and which columns hold
// the identifier, text and grouping label.
type CorpusConfig struct {
	Source      string `yaml:"source"`
	Path        string `yaml:"path"`
	Table       string `yaml:"table"`
	IDColumn    string `yaml:"idColumn"`
	TextColumn  string `yaml:"textColumn"`
	GroupColumn string `yaml:"groupColumn"`
}

// TokenizerConfig controls text normalisation before scoring.
type TokenizerConfig struct {
	RemoveStopWords bool `yaml:"removeStopWords"`
	Stem            bool `yaml:"stem"`
	MinLength       int  `yaml:"minLength"`
}

// ScoringConfig controls the scoring pipeline.
type ScoringConfig struct {
	Workers        int           `yaml:"workers"`
	TopK           int           `yaml:"topK"`
	Aggregation    string        `yaml:"aggregation"`
	SaveReports    bool          `yaml:"saveReports"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// RateLimitConfig controls the per-client token bucket on the HTTP API.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
}

// AuthConfig controls API key checks on the admin endpoints. Keys live in
// PostgreSQL, so enabling auth requires postgres.enabled.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a .env file and a YAML config file (both optional) and applies
// environment-variable overrides. It returns a Config populated with sensible
// defaults for any missing values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Scoring.Workers < 1 {
		problems = append(problems, "scoring.workers must be at least 1")
	}
	if c.Scoring.TopK < 0 {
		problems = append(problems, "scoring.topK must not be negative")
	}
	switch c.Scoring.Aggregation {
	case "max", "mean":
	default:
		problems = append(problems, fmt.Sprintf("scoring.aggregation %q must be max or mean", c.Scoring.Aggregation))
	}
	switch c.Corpus.Source {
	case "csv", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("corpus.source %q must be csv or postgres", c.Corpus.Source))
	}
	if c.Tokenizer.MinLength < 1 {
		problems = append(problems, "tokenizer.minLength must be at least 1")
	}
	seen := make(map[string]struct{})
	for _, tl := range c.Dictionaries.TermLists {
		problems = append(problems, checkDictionaryName(seen, tl.Name, tl.Path)...)
	}
	for _, w := range c.Dictionaries.Weighted {
		problems = append(problems, checkDictionaryName(seen, w.Name, w.Path)...)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow < 1 || c.RateLimit.Window <= 0) {
		problems = append(problems, "rateLimit requires requestsPerWindow >= 1 and a positive window")
	}
	if c.Auth.Enabled && !c.Postgres.Enabled {
		problems = append(problems, "auth.enabled requires postgres.enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkDictionaryName(seen map[string]struct{}, name, path string) []string {
	var problems []string
	if name == "" {
		problems = append(problems, fmt.Sprintf("dictionary at %q has no name", path))
	}
	if path == "" {
		problems = append(problems, fmt.Sprintf("dictionary %q has no path", name))
	}
	if _, dup := seen[name]; dup && name != "" {
		problems = append(problems, fmt.Sprintf("dictionary name %q used twice", name))
	}
	seen[name] = struct{}{}
	return problems
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textanalytics",
			User:            "textanalytics",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textanalytics-scorer",
			Topics: KafkaTopics{
				ScoreRequests: "score-requests",
				ScoreResults:  "score-results",
			},
			BatchSize:       100,
			FlushInterval:   time.Second,
			HandlerAttempts: 3,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Corpus: CorpusConfig{
			Source:      "csv",
			Table:       "documents",
			TextColumn:  "text",
			GroupColumn: "genre",
		},
		Tokenizer: TokenizerConfig{
			MinLength: 1,
		},
		Scoring: ScoringConfig{
			Workers:        4,
			TopK:           10,
			Aggregation:    "max",
			RequestTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 600,
			Window:            time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DTA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DTA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DTA_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("DTA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DTA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DTA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DTA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DTA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DTA_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DTA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DTA_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("DTA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DTA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DTA_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("DTA_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("DTA_SCORING_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.Workers = n
		}
	}
	if v := os.Getenv("DTA_AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = parseBool(v, cfg.Auth.Enabled)
	}
	if v := os.Getenv("DTA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DTA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
