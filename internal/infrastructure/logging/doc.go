// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Named children:
//   - frontend: lines forwarded by the UI through the log command
//   - sync: readiness, push and replace events
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Frontend().Info("node graph mounted")
package logging
