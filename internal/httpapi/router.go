package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/migration"
)

// Handler carries the admin surface's dependencies. The health probe is
// optional; without one the health endpoint always reports ok.
type Handler struct {
	snapshots backup.SnapshotManager
	restores  backup.RestoreManager
	imports   migration.ImportService
	health    func(ctx context.Context) error
	logger    *logging.Logger
}

// NewHandler creates the admin API handler
func NewHandler(
	snapshots backup.SnapshotManager,
	restores backup.RestoreManager,
	imports migration.ImportService,
	health func(ctx context.Context) error,
	logger *logging.Logger,
) (*Handler, error) {
	if snapshots == nil {
		return nil, backup.NewConfigurationError("snapshot manager is required", nil)
	}
	if restores == nil {
		return nil, backup.NewConfigurationError("restore manager is required", nil)
	}
	if imports == nil {
		return nil, backup.NewConfigurationError("import service is required", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Handler{
		snapshots: snapshots,
		restores:  restores,
		imports:   imports,
		health:    health,
		logger:    logger,
	}, nil
}

// Routes builds the chi router for the admin surface
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging(h.logger))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Route("/backup", func(r chi.Router) {
			r.Post("/create", h.handleCreateSnapshot)
			r.Get("/list", h.handleListSnapshots)
			r.Post("/restore/{id}", h.handleRestore)
		})

		r.Route("/migrate", func(r chi.Router) {
			r.Post("/import", h.handleImport)
			r.Get("/runs", h.handleListRuns)
			r.Get("/runs/{id}", h.handleGetRun)
		})
	})

	return r
}

type healthStatus struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// handleHealth reports liveness and, when a probe is wired, dependency
// health. GET /api/v1/health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeEnvelope(w, h.logger, http.StatusServiceUnavailable, &response{
				Status: "error",
				Error:  &apiError{Code: "UNHEALTHY", Message: err.Error()},
			})
			return
		}
	}
	respondJSON(w, h.logger, http.StatusOK, healthStatus{Status: "ok", CheckedAt: time.Now().UTC()})
}

// requestLogging tags each request with an id, threads it through the
// context for downstream log lines, and logs the completed request.
func requestLogging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()[:8]
			ctx := logging.CreateContextWithRequestID(r.Context(), requestID)
			w.Header().Set("X-Request-ID", requestID)

			wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     wrapped.Status(),
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			}).Debug("Request completed")
		})
	}
}
