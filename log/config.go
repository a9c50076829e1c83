package log

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the optional log config file.
//
//	defaultLevel: info
//	filters: "debug:backend.*,connect info:*"
type Config struct {
	DefaultLevel string `yaml:"defaultLevel"`
	Filters      string `yaml:"filters"`
}

func DefaultConfig() *Config {
	return &Config{DefaultLevel: "info"}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read log config %s: %w", path, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("could not parse log config %s: %w", path, err)
	}
	return ret, nil
}

// NewFromConfig builds a logger from a Config using the given output format
// ("json" or anything else for console style).
func NewFromConfig(cfg *Config, format string, w io.Writer, opts ...Option) (*Logger, error) {
	level, err := ParseLevel(cfg.DefaultLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.DefaultLevel, err)
	}
	enc := devEncoder()
	if format == "json" {
		enc = prodEncoder()
	}
	return newLogger(w, level, enc, cfg.Filters, opts...), nil
}
