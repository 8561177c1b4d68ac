package config

import (
	"fmt"

	"go.uber.org/zap"
)

// BuildLogger constructs the service logger from the log section.
func (c LogConfig) BuildLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", c.Level, err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}
