// Package router wires the handlers to their paths and wraps them in the
// middleware every response goes through.
//
// Route table (prefix defaults to /api):
//
//	OPTIONS *                        → 200, empty
//	GET     /api/students[/...]      → list all students
//	POST    /api/students[/...]      → create or replace a student
//	PUT     /api/students[/...]      → create or replace a student
//	DELETE  /api/students[/...]      → delete a student
//	POST    /api/student-login[/...] → school/class/account lookup
//	POST    /api/comment[/...]       → ADD / RECALL / BLOCK
//	GET     /healthz                 → storage ping
//	GET     /metrics                 → Prometheus exposition
//
// Anything else is a 404 {"error": "API Path Not Found"}.
package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/student-tracker/internal/config"
	"github.com/aanand-mishra/student-tracker/internal/http/handlers"
	"github.com/aanand-mishra/student-tracker/internal/http/handlers/comment"
	"github.com/aanand-mishra/student-tracker/internal/http/handlers/student"
	"github.com/aanand-mishra/student-tracker/internal/metrics"
	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/utils/response"
)

// MsgPathNotFound is the body of every unrouted request.
const MsgPathNotFound = "API Path Not Found"

// New builds the HTTP handler for the whole API.
func New(cfg *config.Config, store storage.Storage) http.Handler {
	prefix := "/" + strings.Trim(cfg.HTTPServer.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Observe)
	r.Use(CORS)
	r.Use(Recover)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// Only the first segment after the prefix selects the handler, so
	// /api/students/, /api/students/s1 and /api/students all list.
	r.Route(prefix+"/students", func(r chi.Router) {
		segment(r, http.MethodGet, adapt(student.GetList(store)))
		segment(r, http.MethodPost, adapt(student.Upsert(store)))
		segment(r, http.MethodPut, adapt(student.Upsert(store)))
		segment(r, http.MethodDelete, adapt(student.Delete(store)))
	})
	r.Route(prefix+"/student-login", func(r chi.Router) {
		segment(r, http.MethodPost, adapt(student.Login(store)))
	})
	r.Route(prefix+"/comment", func(r chi.Router) {
		segment(r, http.MethodPost, adapt(comment.Handle(store)))
	})

	r.Get("/healthz", adapt(health(store)))

	if !cfg.Metrics.Disabled {
		metrics.Register()
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	return r
}

// segment registers h for method on the subtree root and on everything
// below it.
func segment(r chi.Router, method string, h http.HandlerFunc) {
	r.Method(method, "/", h)
	r.Method(method, "/*", h)
}

// adapt converts a handlers.Func into an http.HandlerFunc. This is the one
// place a returned error becomes a response: its status comes from
// response.StatusOf and its body is {"error": err.Error()}.
func adapt(h handlers.Func) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		err := h(ww, r)
		if err == nil {
			return
		}

		status := response.StatusOf(err)
		if status >= http.StatusInternalServerError {
			slog.Error("handler error",
				slog.String("path", r.URL.Path),
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("error", err.Error()))
		}

		if ww.Status() != 0 {
			// The response is already on the wire.
			return
		}
		_ = response.WriteError(ww, err)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	_ = response.WriteJSON(w, http.StatusNotFound, response.Body{Error: MsgPathNotFound})
}

func health(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := store.Ping(r.Context()); err != nil {
			return err
		}
		return response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
