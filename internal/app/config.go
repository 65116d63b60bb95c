package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // hcl file or directory

	Steps     int    // minibatches to evaluate
	LogFormat string
	LogLevel  string
	TraceOut  string // trace stream destination, empty means stderr
	SaveModel string // model file written after the run, empty disables
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.Steps <= 0 {
		cfg.Steps = 1
	}
	return &cfg, nil
}
