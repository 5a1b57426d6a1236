// Package logging provides the process logger and request ID
// propagation for request-scoped tracing.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide structured logger. level accepts the
// usual zap names (debug, info, warn, error); empty means info.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
