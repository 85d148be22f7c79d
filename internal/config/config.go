// Package config loads the topgrep YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/reugn/topgrep/query"
	"gopkg.in/yaml.v3"
)

// QueryDef defines a single query. Exactly one of PID and Command must be set.
type QueryDef struct {
	PID     *uint32 `yaml:"pid"`
	Command string  `yaml:"command"`
}

// FoldConfig holds the folding settings.
type FoldConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Bucket     time.Duration `yaml:"bucket"`
	TimeLayout string        `yaml:"time_layout"`
}

// NATSConfig holds the NATS publication settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// OutputConfig holds the output settings.
type OutputConfig struct {
	Path string     `yaml:"path"`
	NATS NATSConfig `yaml:"nats"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level configuration struct.
type Config struct {
	Queries []QueryDef    `yaml:"queries"`
	Fold    FoldConfig    `yaml:"fold"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoadConfig reads the configuration from a YAML file and validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if _, err := cfg.QueryList(); err != nil {
		return nil, err
	}
	if cfg.Fold.Bucket != 0 && (cfg.Fold.Bucket < time.Second || cfg.Fold.Bucket > 24*time.Hour) {
		return nil, fmt.Errorf("fold bucket %s is out of range [1s, 24h]", cfg.Fold.Bucket)
	}
	return &cfg, nil
}

// QueryList converts the query definitions to queries, preserving order.
func (c *Config) QueryList() ([]query.Query, error) {
	queries := make([]query.Query, 0, len(c.Queries))
	for i, def := range c.Queries {
		switch {
		case def.PID != nil && def.Command != "":
			return nil, fmt.Errorf("query %d: pid and command are mutually exclusive", i)
		case def.PID != nil:
			queries = append(queries, query.ByPID(*def.PID))
		case def.Command != "":
			queries = append(queries, query.ByCommand(def.Command))
		default:
			return nil, fmt.Errorf("query %d: %w", i, errEmptyQuery)
		}
	}
	return queries, nil
}

var errEmptyQuery = errors.New("either pid or command must be set")
