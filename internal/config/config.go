package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RegistryConfig locates the service registry definition.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the spatial cache backend.
// Backend is one of "memory", "sqlite", or "postgres"; DSN applies to
// the persistent backends.
type CacheConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// HTTPConfig configures the outbound client used for upstream services.
type HTTPConfig struct {
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Timeout returns the configured client timeout as a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("GEOCONTEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("registry.path", "registry.yaml")
	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.dsn", "geocontext.db")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.user_agent", "geocontext/1.0")
	v.SetDefault("http.rate_per_second", 4)
	v.SetDefault("http.rate_burst", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks the fields the given mode depends on. Mode is the
// command family: "serve", "resolve", or "warm".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "resolve", "warm":
		// No extra requirements beyond the shared ones.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Registry.Path == "" {
		problems = append(problems, "registry.path is required")
	}
	switch c.Cache.Backend {
	case "memory":
	case "sqlite", "postgres":
		if c.Cache.DSN == "" {
			problems = append(problems, "cache.dsn is required for backend "+c.Cache.Backend)
		}
	default:
		problems = append(problems, "cache.backend must be one of memory, sqlite, postgres")
	}
	if c.HTTP.TimeoutSecs <= 0 {
		problems = append(problems, "http.timeout_secs must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
