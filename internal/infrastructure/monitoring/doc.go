/*
Package monitoring provides Prometheus metrics for the backend.

# Overview

Each Metrics value owns its own registry so several servers (or tests) can
coexist in one process.

# Metrics

- HTTP request count and latency by route template
- Command invocations by name, transport and status
- State replaces by result, pushes by trigger and result
- Ready signals and forwarded UI log lines
- WebSocket connections and messages
- Uptime

# Usage

	metrics := monitoring.NewMetrics()
	go metrics.Run(ctx)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "replace_state", "ws")
	// ... handle command ...
	timer.Stop("success")
*/
package monitoring
