package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// ErrInvalid is wrapped by every validation failure from Load.
var ErrInvalid = errors.New("invalid configuration")

// PercentagesConfig holds the default markup and tax rates.
type PercentagesConfig struct {
	GG  float64 `mapstructure:"gg"`
	BI  float64 `mapstructure:"bi"`
	IVA float64 `mapstructure:"iva"`
}

// ServeConfig holds configuration for the HTTP API.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config holds all runtime configuration for surveyor.
// Values are populated from .surveyor.yaml, a .env file, SURVEYOR_* env vars,
// and CLI flags.
type Config struct {
	Percentages   PercentagesConfig `mapstructure:"percentages"`
	Encodings     []string          `mapstructure:"encodings"`
	MaxFileSizeMB int               `mapstructure:"max_file_size_mb"`
	DBPath        string            `mapstructure:"db_path"`
	BudgetsDir    string            `mapstructure:"budgets_dir"`
	TelemetryPath string            `mapstructure:"telemetry_path"`
	Verbose       bool              `mapstructure:"verbose"`
	Serve         ServeConfig       `mapstructure:"serve"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("percentages.gg", 13.0)
	viper.SetDefault("percentages.bi", 6.0)
	viper.SetDefault("percentages.iva", 21.0)
	viper.SetDefault("encodings", []string{"windows-1252", "cp850"})
	viper.SetDefault("max_file_size_mb", 50)
	viper.SetDefault("db_path", ".surveyor/catalog.db")
	viper.SetDefault("budgets_dir", ".surveyor/budgets")
	viper.SetDefault("telemetry_path", ".surveyor/events.jsonl")
	viper.SetDefault("verbose", false)
	viper.SetDefault("serve.addr", "127.0.0.1:8088")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	p := c.Percentages
	if p.GG < 0 || p.BI < 0 || p.IVA < 0 {
		return fmt.Errorf("config: %w: percentages must not be negative", ErrInvalid)
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("config: %w: max_file_size_mb must be positive", ErrInvalid)
	}
	if len(c.Encodings) == 0 {
		return fmt.Errorf("config: %w: encodings must list at least one codepage", ErrInvalid)
	}
	return nil
}

// BudgetPercentages converts the configured rates to the budget model.
func (c Config) BudgetPercentages() budget.Percentages {
	return budget.Percentages{GG: c.Percentages.GG, BI: c.Percentages.BI, IVA: c.Percentages.IVA}
}

// MaxFileSizeBytes is the pre-flight size ceiling in bytes.
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// LoadDotEnv exports the variables in a dotenv file into the process
// environment without overriding ones already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
