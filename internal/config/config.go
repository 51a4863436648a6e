package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Rollup RollupConfig `yaml:"rollup" mapstructure:"rollup"`
}

// StoreConfig configures the database backend. Path is the sqlite file,
// DatabaseURL the postgres connection string; each driver reads only its own
// field.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ImportConfig configures workbook ingestion. SkipColors lists ARGB fill
// colors whose rows are ignored on import; MatchThreshold is the minimum
// similarity for fuzzy parent resolution.
type ImportConfig struct {
	Sheet          string   `yaml:"sheet" mapstructure:"sheet"`
	SkipRows       int      `yaml:"skip_rows" mapstructure:"skip_rows"`
	SkipColors     []string `yaml:"skip_colors" mapstructure:"skip_colors"`
	MatchThreshold float64  `yaml:"match_threshold" mapstructure:"match_threshold"`
}

// RollupConfig carries the status band boundaries in percent.
type RollupConfig struct {
	GreenThreshold float64 `yaml:"green_threshold" mapstructure:"green_threshold"`
	AmberThreshold float64 `yaml:"amber_threshold" mapstructure:"amber_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCORECARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "scorecard.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("import.sheet", "")
	v.SetDefault("import.skip_rows", 1)
	v.SetDefault("import.skip_colors", []string{"FFBFBFBF", "FF808080"})
	v.SetDefault("import.match_threshold", 0.4)
	v.SetDefault("rollup.green_threshold", 76.0)
	v.SetDefault("rollup.amber_threshold", 51.0)

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

// Validate checks the configuration for the given mode: "store" for commands
// that only open the database, "serve" for the API server, "import" for
// workbook ingestion. Problems are collected and reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	if c.Rollup.AmberThreshold <= 0 {
		problems = append(problems, "rollup.amber_threshold must be > 0")
	}
	if c.Rollup.GreenThreshold <= c.Rollup.AmberThreshold {
		problems = append(problems, "rollup.green_threshold must be > rollup.amber_threshold")
	}

	switch mode {
	case "store":
		// Store and rollup checks above suffice.
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.RatePerSecond <= 0 {
			problems = append(problems, "server.rate_per_second must be > 0")
		}
		if c.Server.RateBurst < 1 {
			problems = append(problems, "server.rate_burst must be >= 1")
		}
	case "import":
		if c.Import.SkipRows < 0 {
			problems = append(problems, "import.skip_rows must be >= 0")
		}
		if c.Import.MatchThreshold < 0 || c.Import.MatchThreshold > 1 {
			problems = append(problems, "import.match_threshold must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: invalid configuration: " + strings.Join(problems, "; "))
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
