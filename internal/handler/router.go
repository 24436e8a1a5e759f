// Package handler is the HTTP surface of the assistant: the chi router, the
// JWT and rate-limit middleware, and one closure handler per endpoint. Every
// handler opens an otel span named after its route and maps domain errors to
// status codes through handleServiceError.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/confirmation"
	documentrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/repository"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/search"
	documentservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/service"
	statementrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/repository"
	statementservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/service"
	userservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/config"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/storage"
)

var tracer = otel.Tracer("handler")

// NewRouter wires every endpoint. Nil collaborators degrade rather than
// panic: no store means no listing, no index means no search, no upload
// archive means password retries need a re-upload.
func NewRouter(
	db *pgxpool.Pool,
	authSvc *userservice.Service,
	docSvc *documentservice.Service,
	flow *confirmation.Workflow,
	docRepo *documentrepo.Repository,
	index *search.Index,
	stmtSvc *statementservice.Service,
	stmtRepo *statementrepo.Repository,
	catSvc *categorization.Service,
	uploads storage.Storage,
	metrics *observability.Metrics,
	srv config.ServerConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.Tracing)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   srv.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(db, index))
	r.Get("/readyz", readyzHandler(db))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Public: exchange a provisioned API token for a JWT.
		r.Post("/auth/token", authTokenHandler(authSvc, logger))

		// Everything else runs behind bearer auth and the per-user limiter.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))
			r.Use(RateLimitMiddleware(srv.RateLimitPerSecond, srv.RateLimitBurst, logger))

			// Documents: submit, search/list, fetch one.
			r.Post("/documents", submitDocumentHandler(docSvc, flow, uploads, metrics, logger))
			r.Get("/documents", listDocumentsHandler(docRepo, index, logger))
			r.Get("/documents/{documentID}", getDocumentHandler(docRepo, logger))

			// Confirmation workflow for the last submitted document.
			r.Get("/confirmations/pending", pendingConfirmationHandler(flow, logger))
			r.Post("/confirmations/edit", editConfirmationHandler(flow, logger))
			r.Post("/confirmations/confirm", confirmHandler(flow, metrics, logger))
			r.Post("/confirmations/cancel", cancelConfirmationHandler(flow, metrics, logger))

			// Bank statements.
			r.Post("/statements", importStatementHandler(stmtSvc, uploads, metrics, logger))
			r.Get("/statements", listStatementsHandler(stmtRepo, logger))
			r.Get("/statements/banks", listBanksHandler())
			r.Get("/statements/{statementID}", getStatementHandler(stmtRepo, logger))

			// Category vocabulary and user rules.
			r.Get("/categories", listCategoriesHandler())
			r.Get("/categories/suggest", suggestCategoryHandler(catSvc, logger))
			r.Get("/categories/rules", listRulesHandler(catSvc, logger))
			r.Post("/categories/rules", createRuleHandler(catSvc, logger))
			r.Delete("/categories/rules/{ruleID}", deleteRuleHandler(catSvc, logger))
		})
	})

	return r
}

type dependencyHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// healthzHandler reports per-dependency health. The endpoint itself always
// answers 200; the payload says what is degraded.
func healthzHandler(db *pgxpool.Pool, index *search.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		deps := []dependencyHealth{
			{Name: "api", Status: "healthy"},
		}

		if db != nil {
			start := time.Now()
			status := "healthy"
			detail := ""
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				detail = err.Error()
			}
			deps = append(deps, dependencyHealth{
				Name: "postgres", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), Detail: detail,
			})
		} else {
			deps = append(deps, dependencyHealth{Name: "postgres", Status: "disabled"})
		}

		if index != nil {
			status := "healthy"
			detail := ""
			if _, err := index.DocCount(); err != nil {
				status = "degraded"
				detail = err.Error()
			}
			deps = append(deps, dependencyHealth{Name: "search", Status: status, Detail: detail})
		} else {
			deps = append(deps, dependencyHealth{Name: "search", Status: "disabled"})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"dependencies": deps,
			"checked_at":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readyzHandler gates on the database: a pod without its store should not
// receive traffic. With no pool configured the process is ready by definition.
func readyzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
