// Package config loads application settings from defaults, an optional YAML file,
// a .env file and the environment.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "DEEPRESEARCH"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Search      SearchConfig      `mapstructure:"search"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	History     HistoryConfig     `mapstructure:"history"`
	Redis       RedisConfig       `mapstructure:"redis"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxWait         time.Duration `mapstructure:"max_wait"` // ceiling for GET /result?wait=
}

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	Depth         string        `mapstructure:"depth"`
	MaxResults    int           `mapstructure:"max_results"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Endpoint      string        `mapstructure:"endpoint"` // provider URL override
}

type ExtractConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type PipelineConfig struct {
	MaxQueries int `mapstructure:"max_queries"`
	MaxSources int `mapstructure:"max_sources"`
}

type CoordinatorConfig struct {
	Workers           int           `mapstructure:"workers"`
	QueueSize         int           `mapstructure:"queue_size"`
	TaskTimeout       time.Duration `mapstructure:"task_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	Retention         time.Duration `mapstructure:"retention"`
	AccessGrace       time.Duration `mapstructure:"access_grace"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type HistoryConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Dir    string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// legacyEnv maps keys to the plain variable names the application has always read.
var legacyEnv = map[string][]string{
	"llm.api_key":     {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"llm.model":       {"GEMINI_MODEL"},
	"llm.temperature": {"TEMPERATURE"},
	"search.api_key":  {"TAVILY_API_KEY"},
	"server.port":     {"PORT"},
	"history.dsn":     {"DATABASE_URL"},
	"redis.addr":      {"REDIS_ADDR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_wait", 5*time.Minute)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("llm.model", "gemini-1.5-pro")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.depth", "basic")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("search.rate_per_second", 1.0)
	v.SetDefault("search.endpoint", "")

	v.SetDefault("extract.timeout", 10*time.Second)
	v.SetDefault("extract.max_chars", 10000)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("retry.max_interval", 5*time.Second)

	v.SetDefault("pipeline.max_queries", 3)
	v.SetDefault("pipeline.max_sources", 5)

	v.SetDefault("coordinator.workers", 0)
	v.SetDefault("coordinator.queue_size", 64)
	v.SetDefault("coordinator.task_timeout", 10*time.Minute)
	v.SetDefault("coordinator.heartbeat_interval", 15*time.Second)
	v.SetDefault("coordinator.retention", 5*time.Minute)
	v.SetDefault("coordinator.access_grace", time.Minute)
	v.SetDefault("coordinator.cleanup_interval", 30*time.Second)

	v.SetDefault("history.driver", "file")
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.dir", "web/research_history")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load reads .env (when present), then merges defaults, the YAML file at path (when
// non-empty) and the environment. DEEPRESEARCH_SECTION_KEY overrides section.key.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// Validate checks the settings needed to run live research.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm api key is not set (GOOGLE_API_KEY or DEEPRESEARCH_LLM_API_KEY)")
	}
	provider := strings.ToLower(c.Search.Provider)
	if (provider == "" || provider == "tavily") && strings.TrimSpace(c.Search.APIKey) == "" {
		return errors.New("tavily api key is not set (TAVILY_API_KEY or DEEPRESEARCH_SEARCH_API_KEY)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
