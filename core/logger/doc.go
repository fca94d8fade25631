// Package logger builds the process-wide slog logger from environment
// configuration and provides attribute helpers for consistent structured
// logging across the gateway.
//
// Attribute helpers use the empty Attr pattern for nil safety, so calls like
// log.Info("msg", logger.Error(err)) need no explicit nil checks.
package logger
