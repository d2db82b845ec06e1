package server

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/waha/internal/middleware"
)

const readHeaderTimeout = 10 * time.Second

// routes builds the route table. Root is an exact match so unknown paths
// fall through to the mux's 404.
func (s *Server) routes() (*http.ServeMux, error) {
	assetsDir, err := s.resolveAssetsDir()
	if err != nil {
		return nil, err
	}

	api := http.NewServeMux()
	handle(api, "/api", "GET /hello", http.HandlerFunc(s.handleHelloFromTheServer))
	handle(api, "/api", "POST /todos", withTodoRequest(s.logger, s.handleAddTodo))

	mux := http.NewServeMux()
	handle(mux, "", "GET /{$}", http.HandlerFunc(s.handleHello))
	handle(mux, "", "GET /another-page", http.HandlerFunc(s.handleAnotherPage))
	mux.Handle("/api/", http.StripPrefix("/api", api))
	handle(mux, "", "GET /assets/", http.StripPrefix("/assets/", http.FileServer(assetFS{http.Dir(assetsDir)})))
	handle(mux, "", "GET /healthz", http.HandlerFunc(s.handleHealth))

	if s.config.Development.HotReload {
		handle(mux, "", "GET /ws", http.HandlerFunc(s.hub.HandleWebSocket))
	}

	return mux, nil
}

// handle registers h on mux under pattern. The request span is renamed to
// the public route, which is pattern with prefix prepended to its path.
func handle(mux *http.ServeMux, prefix, pattern string, h http.Handler) {
	route := prefix + pattern
	if method, p, ok := strings.Cut(pattern, " "); ok {
		route = method + " " + prefix + strings.TrimSuffix(p, "{$}")
	}
	mux.Handle(pattern, middleware.RouteName(route, h))
}

// assetFS hides directory listings. A directory opens only when it holds an
// index.html, which http.FileServer then serves in its place.
type assetFS struct {
	fs http.FileSystem
}

func (a assetFS) Open(name string) (http.File, error) {
	f, err := a.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := a.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	_ = index.Close()

	return f, nil
}

// resolveAssetsDir anchors the configured assets directory at the working
// directory. A missing directory is not an error; requests then 404.
func (s *Server) resolveAssetsDir() (string, error) {
	dir := s.config.Server.AssetsDir
	if filepath.IsAbs(dir) {
		return dir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve assets directory: %w", err)
	}

	return filepath.Join(cwd, dir), nil
}
