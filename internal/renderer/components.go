package renderer

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter keeps the first write error so component bodies read as
// straight-line markup.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err != nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

func layout(title string, options Options, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(title)
		hw.raw(`</title>`)
		hw.raw(`<link rel="stylesheet" href="/assets/main.css">`)
		hw.raw(`<script src="https://unpkg.com/htmx.org@1.9.12" crossorigin="anonymous"></script>`)
		hw.raw(`</head><body>`)
		hw.raw(`<nav><a href="/">Home</a> <a href="/another-page">Another page</a></nav>`)
		hw.raw(`<main>`)
		hw.component(ctx, body)
		hw.raw(`</main>`)
		if options.LiveReload {
			hw.component(ctx, liveReloadScript(options.ReloadPath))
		}
		hw.raw(`</body></html>`)

		return hw.err
	})
}

func helloBody() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<h1>Hello!</h1>`)
		hw.raw(`<button hx-get="/api/hello" hx-target="#server-greeting" hx-swap="innerHTML">Say hello to the server</button>`)
		hw.raw(`<p id="server-greeting"></p>`)
		hw.raw(`<form hx-post="/api/todos" hx-target="#todo-list" hx-swap="innerHTML" hx-on::after-request="this.reset()">`)
		hw.raw(`<label for="todo">Todo</label> <input id="todo" name="todo" type="text" required>`)
		hw.raw(`<button type="submit">Add</button>`)
		hw.raw(`</form>`)
		hw.raw(`<div id="todo-list"></div>`)

		return hw.err
	})
}

func liveReloadScript(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<script data-reload-path="`)
		hw.text(path)
		hw.raw(`">(function(){`)
		hw.raw(`var p=document.currentScript.dataset.reloadPath;`)
		hw.raw(`var s=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+p);`)
		hw.raw(`s.onmessage=function(e){try{if(JSON.parse(e.data).type==="reload"){location.reload();}}catch(_){}};`)
		hw.raw(`})();</script>`)

		return hw.err
	})
}
