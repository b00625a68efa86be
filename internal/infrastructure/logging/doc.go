// Package logging provides structured logging for the catalog service.
//
// It wraps the standard log/slog package so every component logs through
// the same handler with the same default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.Error("store unavailable", "error", err)
//
// Never log bearer tokens, session IDs, or password hashes. Log the token
// jti when a token has to be identified.
package logging
