// Package web embeds the chat widget (dist/) and provides an HTTP handler
// that serves it as a single-page application (SPA).
//
// The widget reads its runtime settings from widget-config.json, so the
// same bundle works wherever the handler is mounted.
package web

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// ConfigPath is the widget's runtime settings document, relative to the mount point.
const ConfigPath = "widget-config.json"

// Options configures the widget.
type Options struct {
	// ChatURL is where the widget posts messages. Defaults to "/chat".
	ChatURL string
	// Title replaces the page heading when set.
	Title string
}

// widgetConfig is the JSON shape app.js expects.
type widgetConfig struct {
	ChatURL string `json:"chat_url"`
	Title   string `json:"title,omitempty"`
}

// SPAHandler returns an http.Handler that serves the embedded widget.
// It serves static files from dist/, answers widget-config.json from opts,
// and falls back to index.html for any extensionless path that doesn't
// match a file. Missing assets get a 404 rather than the page.
func SPAHandler(opts Options) http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	if opts.ChatURL == "" {
		opts.ChatURL = "/chat"
	}
	settings, err := json.Marshal(widgetConfig{ChatURL: opts.ChatURL, Title: opts.Title})
	if err != nil {
		panic("web: failed to encode widget config: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == ConfigPath {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "no-store")
			if _, err := w.Write(settings); err != nil {
				slog.Debug("web: failed to write widget config", "error", err)
			}
			return
		}
		if name == "" {
			name = "index.html"
		}

		// Check if file exists in the embedded FS.
		if f, err := subFS.Open(name); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", name, "error", closeErr)
			}
			setCacheControl(w, name)
			fileServer.ServeHTTP(w, r)
			return
		}

		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}

		// Not a file: serve index.html for client-side routes.
		setCacheControl(w, "index.html")
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// The page is revalidated on every load; assets may be cached briefly.
func setCacheControl(w http.ResponseWriter, name string) {
	if name == "index.html" {
		w.Header().Set("Cache-Control", "no-cache")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
}
