package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/surface"
	"github.com/vango-dev/surface/pkg/binder"
	"github.com/vango-dev/surface/pkg/dom"
)

// maxBodyBytes caps side-port request bodies.
const maxBodyBytes = 1 << 20

// bindingInfo describes one binding in /channels and `surface scan --json`.
type bindingInfo struct {
	Channel string `json:"channel"`
	Kind    string `json:"kind"`
	Element string `json:"element"`
}

// fireRequest is the body of POST /fire.
type fireRequest struct {
	Selector string  `json:"selector"`
	Event    string  `json:"event"`
	Value    *string `json:"value,omitempty"`
	Checked  *bool   `json:"checked,omitempty"`
}

type handlers struct {
	surface *surface.Surface
	logger  *slog.Logger
}

func newRouter(s *surface.Surface, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	h := &handlers{surface: s, logger: logger.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/page", h.page)
	r.Get("/channels", h.channels)
	r.Post("/emulate/{channel}", h.emulate)
	r.Post("/fire", h.fire)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": h.surface.Connected(),
		"sessionId": h.surface.SessionID(),
	})
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	out, err := h.surface.HTML()
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (h *handlers) channels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.surface.Channels()
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	bindings, err := h.surface.Bindings()
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"bindings": describeBindings(bindings),
	})
}

func (h *handlers) emulate(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	var value any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&value); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	if err := h.surface.HandleUpdate(channel, value); err != nil {
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) fire(w http.ResponseWriter, r *http.Request) {
	var req fireRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	if req.Selector == "" || req.Event == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "selector and event are required"})
		return
	}

	var el *dom.Element
	var queryErr error
	err := h.surface.Do(func(doc *dom.Document) {
		var els []*dom.Element
		els, queryErr = doc.QueryAll(req.Selector)
		if queryErr != nil || len(els) == 0 {
			return
		}
		el = els[0]
		if req.Value != nil {
			el.SetValue(*req.Value)
		}
		if req.Checked != nil {
			el.SetChecked(*req.Checked)
		}
	})
	switch {
	case err != nil:
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	case queryErr != nil:
		h.fail(w, http.StatusBadRequest, queryErr)
		return
	case el == nil:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no element matches " + req.Selector})
		return
	}

	n, err := h.surface.Fire(el, req.Event)
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"listeners": n})
}

func (h *handlers) fail(w http.ResponseWriter, status int, err error) {
	h.logger.Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func describeBindings(bindings []binder.Binding) []bindingInfo {
	out := make([]bindingInfo, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingInfo{
			Channel: b.Channel,
			Kind:    b.Kind.String(),
			Element: describeElement(b.Element),
		})
	}
	return out
}

// describeElement renders el as tag#id, or just the tag without an id.
func describeElement(el *dom.Element) string {
	if id, ok := el.Attr("id"); ok && id != "" {
		return el.Tag() + "#" + id
	}
	return el.Tag()
}
