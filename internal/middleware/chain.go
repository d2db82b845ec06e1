// Package middleware wraps the router with the request observability layer.
//
// The standard stack, outer to inner, is tracing, access logging, and panic
// recovery. Together they guarantee one span and one access-log record per
// request, whatever the handler does.
package middleware

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/waha/internal/logging"
)

// Middleware represents a single middleware function
type Middleware func(http.Handler) http.Handler

// MiddlewareChain manages the HTTP middleware stack.
//
// Middlewares run in the order they were added: the first added is the
// outermost wrapper. Apply is read-only and safe for concurrent use.
type MiddlewareChain struct {
	middlewares []Middleware
}

// Dependencies contains everything the default stack needs.
type Dependencies struct {
	Tracer trace.Tracer
	Logger logging.Logger
}

// NewMiddlewareChain builds the default stack.
//
// Panics if a dependency is nil.
func NewMiddlewareChain(deps Dependencies) *MiddlewareChain {
	if deps.Tracer == nil {
		panic("MiddlewareChain: tracer cannot be nil")
	}
	if deps.Logger == nil {
		panic("MiddlewareChain: logger cannot be nil")
	}

	chain := &MiddlewareChain{middlewares: make([]Middleware, 0, 4)}

	chain.Add(Tracing(deps.Tracer))
	chain.Add(AccessLog(deps.Logger.WithComponent("http")))
	chain.Add(Recover(deps.Logger.WithComponent("http")))

	return chain
}

// Add appends a middleware; it becomes the innermost wrapper so far.
func (mc *MiddlewareChain) Add(middleware Middleware) {
	mc.middlewares = append(mc.middlewares, middleware)
}

// Len returns the number of middlewares in the chain.
func (mc *MiddlewareChain) Len() int {
	return len(mc.middlewares)
}

// Apply wraps handler with every middleware in the chain.
func (mc *MiddlewareChain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("MiddlewareChain.Apply: handler cannot be nil")
	}

	wrapped := handler
	for i := len(mc.middlewares) - 1; i >= 0; i-- {
		middleware := mc.middlewares[i]
		if middleware == nil {
			panic(fmt.Sprintf("MiddlewareChain.Apply: middleware at index %d is nil", i))
		}

		wrapped = middleware(wrapped)
	}

	return wrapped
}
