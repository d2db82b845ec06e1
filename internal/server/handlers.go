package server

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/conneroisu/waha/internal/errors"
	"github.com/conneroisu/waha/internal/logging"
	"github.com/conneroisu/waha/internal/renderer"
	"github.com/conneroisu/waha/internal/version"
)

// HelloText is the body of GET /api/hello.
const HelloText = "HELSJALKDJKASDa"

const formContentType = "application/x-www-form-urlencoded"

// todoRequest is the decoded body of POST /api/todos.
type todoRequest struct {
	Todo string
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	annotate(r.Context(), "hello")
	html, err := s.renderer.Render(r.Context(), renderer.PageHello, nil)
	s.renderOrError(w, r, html, err)
}

func (s *Server) handleAnotherPage(w http.ResponseWriter, r *http.Request) {
	annotate(r.Context(), "another_page")
	html, err := s.renderer.Render(r.Context(), renderer.PageAnotherPage, nil)
	s.renderOrError(w, r, html, err)
}

func (s *Server) handleHelloFromTheServer(w http.ResponseWriter, r *http.Request) {
	annotate(r.Context(), "hello_from_the_server")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HelloText))
}

// handleAddTodo appends the item, runs the diagnostic and renders the whole
// list. The diagnostic outcome never changes the response.
func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request, req todoRequest) {
	ctx := r.Context()

	todos := s.store.Append(req.Todo)
	annotate(ctx, "add_todo", attribute.Int("todo.count", len(todos)))
	s.logger.Debug(ctx, "todo appended", "count", len(todos))

	s.brancher.Run(ctx)

	html, err := s.renderer.Render(ctx, renderer.PageTodoList, renderer.TodoListView{Todos: todos})
	s.renderOrError(w, r, html, err)
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status    string             `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	BuildInfo *version.BuildInfo `json:"build_info"`
	Todos     int                `json:"todos"`
	Clients   int                `json:"live_reload_clients,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	health := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   info.Short(),
		BuildInfo: info,
		Todos:     s.store.Len(),
	}
	if s.hub != nil {
		health.Clients = s.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

// renderOrError is the single error path for rendering handlers: html on
// success, a 500 naming the failure otherwise.
func (s *Server) renderOrError(w http.ResponseWriter, r *http.Request, html string, err error) {
	if err != nil {
		ctx := r.Context()
		s.logger.Error(ctx, err, "failed to render template", "path", r.URL.Path)

		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")

		http.Error(w, fmt.Sprintf("Failed to render template. Error: %s", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// withTodoRequest decodes the form body before the handler runs. Decode
// failures are answered here and never reach the store.
func withTodoRequest(logger logging.Logger, next func(http.ResponseWriter, *http.Request, todoRequest)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeTodoRequest(r)
		if err != nil {
			logger.Warn(r.Context(), err, "rejected todo request")
			trace.SpanFromContext(r.Context()).RecordError(err)
			http.Error(w, clientMessage(err), apperrors.StatusCode(err))
			return
		}

		next(w, r, req)
	})
}

func decodeTodoRequest(r *http.Request) (todoRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != formContentType {
		return todoRequest{}, apperrors.NewDecodeError(
			apperrors.ErrCodeUnsupportedMedia,
			http.StatusUnsupportedMediaType,
			fmt.Sprintf("Form requests must have `Content-Type: %s`", formContentType),
			err,
		)
	}

	if err := r.ParseForm(); err != nil {
		return todoRequest{}, apperrors.NewDecodeError(
			apperrors.ErrCodeMalformedBody,
			http.StatusBadRequest,
			"Failed to deserialize form body",
			err,
		)
	}

	values, ok := r.PostForm["todo"]
	if !ok || len(values) == 0 {
		return todoRequest{}, apperrors.NewDecodeError(
			apperrors.ErrCodeMissingField,
			http.StatusUnprocessableEntity,
			"Failed to deserialize form body: missing field `todo`",
			nil,
		)
	}

	if len(values) > 1 {
		return todoRequest{}, apperrors.NewDecodeError(
			apperrors.ErrCodeDuplicateField,
			http.StatusUnprocessableEntity,
			"Failed to deserialize form body: duplicate field `todo`",
			nil,
		)
	}

	return todoRequest{Todo: validUTF8(values[0])}, nil
}

// validUTF8 replaces every byte that is not part of a valid UTF-8 sequence
// with U+FFFD.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string([]rune(s))
}

// clientMessage returns the message of an AppError without its code.
func clientMessage(err error) string {
	if ae, ok := err.(*apperrors.AppError); ok {
		return ae.Message
	}
	return err.Error()
}

// annotate names the handler on the request span.
func annotate(ctx context.Context, handler string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(append([]attribute.KeyValue{attribute.String("handler", handler)}, attrs...)...)
	span.AddEvent(handler)
}
