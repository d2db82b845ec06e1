// Package renderer provides the Render Sink: it turns a page name and an
// optional data record into HTML using templ components.
//
// Pages are registered by name at construction. Rendering is a pure
// function of (name, data) apart from the live-reload flag, which only adds
// a client script to full pages.
package renderer

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.906 generate

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/conneroisu/waha/internal/errors"
)

// Page names known to the default renderer.
const (
	PageHello       = "hello"
	PageAnotherPage = "another-page"
	PageTodoList    = "todo-list"
)

// Renderer renders a named template with data.
type Renderer interface {
	Render(ctx context.Context, name string, data any) (string, error)
}

// TodoListView is the data record for PageTodoList. Todos is a snapshot
// taken after the append that triggered the render.
type TodoListView struct {
	Todos []string
}

// PageFunc builds the component for one page from its data record.
type PageFunc func(data any) (templ.Component, error)

// Options configures a ComponentRenderer.
type Options struct {
	// LiveReload adds the websocket reload client to full pages.
	LiveReload bool
	// ReloadPath is the websocket endpoint the client connects to.
	ReloadPath string
}

// ComponentRenderer renders registered templ components.
type ComponentRenderer struct {
	pages   map[string]PageFunc
	options Options
}

// NewComponentRenderer creates a renderer with the hello, another-page and
// todo-list pages registered.
func NewComponentRenderer(options Options) *ComponentRenderer {
	if options.ReloadPath == "" {
		options.ReloadPath = "/ws"
	}

	r := &ComponentRenderer{
		pages:   make(map[string]PageFunc),
		options: options,
	}

	r.Register(PageHello, r.fullPage(PageHello, helloBody))
	r.Register(PageAnotherPage, r.fullPage(PageAnotherPage, anotherPageBody))
	r.Register(PageTodoList, todoListPage)

	return r
}

// Register adds or replaces a page. It must not run concurrently with Render.
func (r *ComponentRenderer) Register(name string, page PageFunc) {
	r.pages[name] = page
}

// Pages returns the registered page names in sorted order.
func (r *ComponentRenderer) Pages() []string {
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders the named page. Errors are *errors.AppError of type render.
func (r *ComponentRenderer) Render(ctx context.Context, name string, data any) (string, error) {
	page, ok := r.pages[name]
	if !ok {
		return "", apperrors.NewUnknownTemplateError(name)
	}

	component, err := page(data)
	if err != nil {
		return "", apperrors.NewRenderError(name, err)
	}

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", apperrors.NewRenderError(name, err)
	}

	return buf.String(), nil
}

// Title turns a page name such as "another-page" into "Another Page".
// A Caser is stateful, so each call builds its own.
func Title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}

func (r *ComponentRenderer) fullPage(name string, body func() templ.Component) PageFunc {
	return func(data any) (templ.Component, error) {
		if data != nil {
			return nil, fmt.Errorf("page %q takes no data, got %T", name, data)
		}
		return layout(Title(name), r.options, body()), nil
	}
}

func todoListPage(data any) (templ.Component, error) {
	switch v := data.(type) {
	case TodoListView:
		return todoList(v.Todos), nil
	case *TodoListView:
		if v == nil {
			return todoList(nil), nil
		}
		return todoList(v.Todos), nil
	default:
		return nil, fmt.Errorf("todo-list expects TodoListView, got %T", data)
	}
}
