package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir            string   `mapstructure:"data_dir" yaml:"data_dir"`
	OutDir             string   `mapstructure:"out_dir" yaml:"out_dir"`
	RunsDir            string   `mapstructure:"runs_dir" yaml:"runs_dir"`
	OutputFormats      []string `mapstructure:"output_formats" yaml:"output_formats"`
	ExpectedTreatments int      `mapstructure:"expected_treatments" yaml:"expected_treatments"`
	CorrectionsFile    string   `mapstructure:"corrections_file" yaml:"corrections_file"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Postgres sink; disabled when PGDSN is empty
	PGDSN    string `mapstructure:"pg_dsn" yaml:"pg_dsn"`
	PGSchema string `mapstructure:"pg_schema" yaml:"pg_schema"`

	// Wikipedia page images
	WikiBaseURL string `mapstructure:"wiki_base_url" yaml:"wiki_base_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "out_dir", "runs_dir", "output_formats", "expected_treatments", "corrections_file",
	"log_level", "log_format", "pg_dsn", "pg_schema", "wiki_base_url",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
}

// Dir returns ~/.trialclean.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".trialclean"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.trialclean/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIALCLEAN")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_dir", "")
	v.SetDefault("out_dir", "clean")
	v.SetDefault("runs_dir", "")
	v.SetDefault("output_formats", []string{"csv"})
	v.SetDefault("expected_treatments", 350)
	v.SetDefault("corrections_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("pg_dsn", "")
	v.SetDefault("pg_schema", "public")
	v.SetDefault("wiki_base_url", "https://en.wikipedia.org/w/api.php")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve runs_dir default: ~/.trialclean/runs
	if c.RunsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

// Get returns the value of key formatted for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "out_dir":
		return c.OutDir, nil
	case "runs_dir":
		return c.RunsDir, nil
	case "output_formats":
		return strings.Join(c.OutputFormats, ","), nil
	case "expected_treatments":
		return strconv.Itoa(c.ExpectedTreatments), nil
	case "corrections_file":
		return c.CorrectionsFile, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "pg_dsn":
		return c.PGDSN, nil
	case "pg_schema":
		return c.PGSchema, nil
	case "wiki_base_url":
		return c.WikiBaseURL, nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val into key.
func (c *Global) Set(key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "data_dir":
		c.DataDir = val
	case "out_dir":
		c.OutDir = val
	case "runs_dir":
		c.RunsDir = val
	case "output_formats":
		var formats []string
		for _, f := range strings.Split(val, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				formats = append(formats, f)
			}
		}
		c.OutputFormats = formats
	case "expected_treatments":
		c.ExpectedTreatments, err = atoi(0)
	case "corrections_file":
		c.CorrectionsFile = val
	case "log_level":
		switch strings.ToLower(val) {
		case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "pg_dsn":
		c.PGDSN = val
	case "pg_schema":
		c.PGSchema = val
	case "wiki_base_url":
		c.WikiBaseURL = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
