// Package internal contains the implementation packages for waha.
//
// # Package Organization
//
//   - config: viper-backed configuration with defaults and validation
//   - diagnostic: the post-append random diagnostic branch
//   - errors: the AppError taxonomy and its HTTP status mapping
//   - logging: slog-backed structured logger and a test recorder
//   - middleware: per-request tracing, access logging and panic recovery
//   - renderer: templ pages and the todo-list fragment
//   - server: router, handlers and server lifecycle
//   - telemetry: OpenTelemetry tracer provider setup
//   - todo: the shared in-memory todo store
//   - version: build metadata
//   - watcher: debounced fsnotify watcher for the assets directory
//   - websocket: live-reload hub
//
// # Request Flow
//
// Every request passes through the middleware chain, which opens one server
// span named after the matched route and writes one access record. Handlers render through the Renderer
// interface. POST /api/todos appends to the todo store under its lock, runs
// the diagnostic branch outside it in child spans, then renders the updated
// list.
package internal
