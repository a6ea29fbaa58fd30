package app

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TemplatePath string
	ModelPath    string // json or yaml
	// Sets are key=value assignments applied to the model after loading.
	// Keys may be dotted paths.
	Sets []string

	OutPath   string // atomic file output, stdout when empty
	Watch     bool
	ServePort int
	FollowURL string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.TemplatePath == "" && cfg.FollowURL == "" {
		return nil, errors.New("TemplatePath is a required configuration field and cannot be empty")
	}
	if cfg.FollowURL != "" && cfg.TemplatePath != "" {
		return nil, errors.New("FollowURL cannot be combined with a template")
	}
	if cfg.ServePort < 0 || cfg.ServePort > 65535 {
		return nil, fmt.Errorf("ServePort %d is out of range", cfg.ServePort)
	}
	if cfg.Watch && cfg.TemplatePath == "" {
		return nil, errors.New("Watch requires a template")
	}
	for _, s := range cfg.Sets {
		if _, _, err := splitSet(s); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// splitSet splits a key=value assignment.
func splitSet(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid assignment %q: want key=value", s)
	}
	for _, part := range strings.Split(key, ".") {
		if part == "" {
			return "", "", fmt.Errorf("invalid assignment %q: empty path segment", s)
		}
	}
	return key, value, nil
}
