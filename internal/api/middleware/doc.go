// Package middleware provides the HTTP middleware stack for the backend.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID stamping (ULID, req_ prefix)
//   - AccessLog: structured request logging via zap
//   - CORS: Cross-origin resource sharing for the webview UI
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.AccessLog(logger.Named("http")))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
