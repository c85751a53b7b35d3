package middleware

import (
	"context"
	"log/slog"
	"time"

	redux "github.com/wjohnso-insight/scc-redux"
)

// LoggerConfig configures the logging middleware.
type LoggerConfig struct {
	// Logger is the structured logger to write to (default: slog.Default()).
	Logger *slog.Logger

	// Level is the level for successful dispatches (default: slog.LevelDebug).
	// Failures always log at Error.
	Level slog.Level

	// LogState logs the settled state after each successful dispatch.
	// Expensive for large state trees - disabled by default.
	LogState bool
}

// LoggerOption configures the logging middleware.
type LoggerOption func(*LoggerConfig)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoggerOption {
	return func(c *LoggerConfig) {
		c.Logger = logger
	}
}

// WithLogLevel sets the level for successful dispatches.
func WithLogLevel(level slog.Level) LoggerOption {
	return func(c *LoggerConfig) {
		c.Level = level
	}
}

// WithStateLogging enables logging the state after each dispatch.
func WithStateLogging(enabled bool) LoggerOption {
	return func(c *LoggerConfig) {
		c.LogState = enabled
	}
}

// defaultLoggerConfig returns the default logging configuration.
func defaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Logger: slog.Default(),
		Level:  slog.LevelDebug,
	}
}

// Logger creates middleware that writes one structured line per
// dispatch: action type, outcome, and duration. Failed dispatches log at
// Error with the error attached.
//
// Example:
//
//	store, err := redux.New(reducer,
//	    redux.WithEnhancer(middleware.Apply(
//	        middleware.Logger[State](middleware.WithLogLevel(slog.LevelInfo)),
//	    )))
func Logger[S any](opts ...LoggerOption) Middleware[S] {
	config := defaultLoggerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return func(api API[S]) func(next redux.Dispatcher) redux.Dispatcher {
		return func(next redux.Dispatcher) redux.Dispatcher {
			return func(action any) (any, error) {
				typ, ok := redux.ActionType(action)
				if !ok {
					typ = "invalid"
				}
				start := time.Now()

				result, err := next(action)

				elapsed := time.Since(start)
				if err != nil {
					config.Logger.Error("dispatch failed",
						"action", typ,
						"duration", elapsed,
						"error", err,
					)
					return result, err
				}

				attrs := []any{
					"action", typ,
					"duration", elapsed,
				}
				if config.LogState {
					if state, stateErr := api.GetState(); stateErr == nil {
						attrs = append(attrs, "state", state)
					}
				}
				config.Logger.Log(context.Background(), config.Level, "dispatch", attrs...)

				return result, nil
			}
		}
	}
}
