// Package config provides 12-factor configuration management for the
// MIDIAnimator backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional TOML or YAML settings file (CONFIG_FILE) supplies a base layer
// that environment variables override. CLI flags override both.
//
// Configuration Sections:
//   - Server: HTTP listener and shutdown settings
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting for the command surface
//   - Sync: Push event name, echo policy and websocket limits
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SYNC_EVENT_NAME, SYNC_ECHO_ON_REPLACE, WS_WRITE_TIMEOUT, WS_MAX_MESSAGE_BYTES
//   - CONFIG_FILE
package config
