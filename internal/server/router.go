package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"task-tracker/internal/auth"
	"task-tracker/internal/manager"
)

// Deps зависимости HTTP-слоя, собираются в cmd.
type Deps struct {
	Users          *manager.UserManager
	Tasks          *manager.TaskManager
	Auth           *auth.Authenticator
	Ping           func(ctx context.Context) error
	UploadDir      string // пусто, если аватары лежат не на диске
	UploadMaxBytes int64
	AllowedOrigins []string // пусто: CORS-заголовки не отдаются
}

func NewRouter(d Deps) *chi.Mux {
	h := &handlers{
		users:          d.Users,
		tasks:          d.Tasks,
		ping:           d.Ping,
		uploadMaxBytes: d.UploadMaxBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(d.AllowedOrigins) > 0 {
		// токен передаётся в заголовке, cookies не нужны
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "WWW-Authenticate"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	if d.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(d.UploadDir)))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Middleware(writeError))

			r.Get("/user", h.currentUser)
			r.Post("/avatar", h.uploadAvatar)

			r.Get("/tasks", h.listTasks)
			r.Post("/tasks", h.createTask)
			r.Patch("/tasks/{id}", h.updateTask)
			r.Delete("/tasks/{id}", h.deleteTask)

			r.Get("/stats", h.stats)
		})
	})

	return r
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
