// Package apigateway puts the auth and task HTTP transports behind a single
// handler together with health, metrics and CORS.
package apigateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	// Secret verifies bearer tokens on protected routes.
	Secret []byte
	// Origins allowed by CORS. Empty allows any origin.
	Origins []string
}

func NewHTTPHandler(auth authendpoint.Set, tasks taskendpoint.Set, cfg Config, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	{
		authHTTPHandler := authtransport.NewHTTPHandler(auth, cfg.Secret, log.With(logger, "transport", "auth"))
		r.PathPrefix("/api/auth/").Handler(authHTTPHandler)
	}
	{
		taskHTTPHandler := tasktransport.NewHTTPHandler(tasks, cfg.Secret, log.With(logger, "transport", "task"))
		r.PathPrefix("/api/tasks").Handler(taskHTTPHandler)
	}

	r.Methods("GET").Path("/healthz").HandlerFunc(healthz)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	r.NotFoundHandler = todokit.NotFoundHandler
	r.MethodNotAllowedHandler = todokit.MethodNotAllowedHandler

	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})(r)
}

// SplitOrigins parses a comma separated origin list, dropping blanks and
// trailing slashes.
func SplitOrigins(s string) []string {
	var origins []string
	for _, p := range strings.Split(s, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
