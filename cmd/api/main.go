// Command api serves the document pipeline over HTTP: intake and
// classification, the confirm-before-commit workflow, statement imports,
// full-text search and the daily reminder sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	documentrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/repository"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/search"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/handler"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/config"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/cron"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.Observability.LogLevel)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Observability.LogLevel),
		slog.Bool("ocr_enabled", cfg.OCR.Enabled),
		slog.String("storage", cfg.Storage.Type),
		slog.String("index_path", cfg.Search.IndexPath),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.Observability.OTLPEndpoint, "assistente-pessoal")
	if err != nil {
		logger.Error("failed to init tracer", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependencies ---
	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to init dependencies", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Cleanup()

	// --- Search index warm-up ---
	// The bleve index is not the source of truth; rebuild it from the
	// confirmed rows so a fresh or wiped index still answers queries.
	if err := warmSearchIndex(context.Background(), deps.DocumentRepo, deps.SearchIndex, logger); err != nil {
		logger.Warn("search index warm-up failed", slog.Any("error", err))
	}

	// --- Reminder scheduler ---
	scheduler := cron.NewScheduler(deps.Reminders, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start reminder scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	// --- pprof ---
	if cfg.Profiling.Enabled {
		go func() {
			addr := fmt.Sprintf("localhost:%d", cfg.Profiling.Port)
			logger.Info("pprof listening", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("pprof server stopped", slog.Any("error", err))
			}
		}()
	}

	// --- Router ---
	router := handler.NewRouter(
		deps.DB.Pool,
		deps.AuthService,
		deps.DocumentService,
		deps.Confirmations,
		deps.DocumentRepo,
		deps.SearchIndex,
		deps.StatementService,
		deps.StatementRepo,
		deps.Categorization,
		deps.Uploads,
		deps.Metrics,
		cfg.Server,
		logger,
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", slog.Any("error", err))
	}

	// Let an in-flight reminder sweep finish before the pool closes.
	<-scheduler.Stop().Done()

	if err := shutdownTracer(ctx); err != nil {
		logger.Warn("tracer shutdown failed", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

// warmSearchIndex pages through every confirmed document and loads the
// search index in one batch.
func warmSearchIndex(ctx context.Context, repo *documentrepo.Repository, index *search.Index, logger *slog.Logger) error {
	const pageSize = 500

	var docs []*document.CommittedDocument
	for offset := 0; ; offset += pageSize {
		page, err := repo.AllConfirmed(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		for i := range page {
			row := page[i]
			docs = append(docs, &document.CommittedDocument{
				Result:      row.Result,
				UserID:      row.UserID,
				Actions:     row.Actions,
				ConfirmedAt: row.ConfirmedAt,
			})
		}
		if len(page) < pageSize {
			break
		}
	}
	if len(docs) == 0 {
		return nil
	}

	if err := index.Reindex(docs); err != nil {
		return err
	}
	logger.Info("search index warmed", slog.Int("documents", len(docs)))
	return nil
}
