package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// startup and passed explicitly into constructors; nothing reads it as
// process-wide state.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the JSON stores and the fetch cache.
type StoreConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	CachePath     string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxBackups    int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// FetchConfig configures polite HTTP fetching.
type FetchConfig struct {
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	HostRequestsPerS float64 `yaml:"host_requests_per_sec" mapstructure:"host_requests_per_sec"`
	MaxBodyKB        int     `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	RespectRobots    bool    `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// Timeout returns the per-request timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// ExtractConfig configures pattern matching and deal building.
type ExtractConfig struct {
	PatternsDir    string  `yaml:"patterns_dir" mapstructure:"patterns_dir"`
	ProximityChars int     `yaml:"proximity_chars" mapstructure:"proximity_chars"`
	MinConfidence  float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// PipelineConfig configures the scraping run.
type PipelineConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`
	FreshnessDays int `yaml:"freshness_days" mapstructure:"freshness_days"`
	ArchiveDays   int `yaml:"archive_days" mapstructure:"archive_days"`
}

// ServerConfig configures the read-only deals API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.cache_path", "data/fetch_cache.db")
	v.SetDefault("store.cache_ttl_hours", 12)
	v.SetDefault("store.max_backups", 10)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; SipsAndSteals/1.0; +https://sips-and-steals.com)")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.host_requests_per_sec", 0.5)
	v.SetDefault("fetch.max_body_kb", 512)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("extract.patterns_dir", "patterns")
	v.SetDefault("extract.proximity_chars", 200)
	v.SetDefault("extract.min_confidence", 0.3)
	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.freshness_days", 7)
	v.SetDefault("pipeline.archive_days", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot start with.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return eris.New("config: store.data_dir is required")
	}
	if c.Pipeline.Workers <= 0 {
		return eris.New("config: pipeline.workers must be positive")
	}
	if c.Extract.ProximityChars <= 0 {
		return eris.New("config: extract.proximity_chars must be positive")
	}
	if c.Extract.MinConfidence < 0 || c.Extract.MinConfidence > 1 {
		return eris.New("config: extract.min_confidence must be in [0,1]")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
