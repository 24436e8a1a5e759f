package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/confirmation"
	documentrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/repository"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/search"
	documentservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/service"
	reminderrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder/repository"
	reminderservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/parser"
	statementrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/repository"
	statementservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/service"
	userrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/repository"
	userservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/ocr"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/pdf"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/config"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	UserRepo      *userrepo.Repository
	DocumentRepo  *documentrepo.Repository
	StatementRepo *statementrepo.Repository
	CategoryRepo  *categorization.Repository
	ReminderRepo  *reminderrepo.Repository

	// Infrastructure
	SearchIndex *search.Index
	Uploads     storage.Storage
	Metrics     *observability.Metrics

	// Services
	AuthService      *userservice.Service
	Categorization   *categorization.Service
	Reminders        *reminderservice.Service
	DocumentService  *documentservice.Service
	Confirmations    *confirmation.Workflow
	StatementService *statementservice.Service
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize storage, search and metrics
	if err := deps.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.UserRepo = userrepo.New(d.DB.Pool)
	d.DocumentRepo = documentrepo.New(d.DB.Pool)
	d.StatementRepo = statementrepo.New(d.DB.Pool)
	d.CategoryRepo = categorization.NewRepository(d.DB.Pool)
	d.ReminderRepo = reminderrepo.New(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initInfrastructure initializes the upload archive, the search index and
// the metrics registry
func (d *Dependencies) initInfrastructure() error {
	uploads, err := storage.New(&storage.Config{
		Type:              storage.Type(d.Config.Storage.Type),
		LocalPath:         d.Config.Storage.LocalPath,
		S3Bucket:          d.Config.Storage.S3Bucket,
		S3Region:          d.Config.Storage.S3Region,
		S3AccessKeyID:     d.Config.Storage.S3AccessKeyID,
		S3SecretAccessKey: d.Config.Storage.S3SecretAccessKey,
		S3Endpoint:        d.Config.Storage.S3Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to init upload archive: %w", err)
	}
	d.Uploads = uploads

	index, err := search.New(d.Config.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	d.SearchIndex = index

	d.Metrics = observability.NewMetrics()

	d.Logger.Info("infrastructure initialized",
		slog.String("storage", d.Config.Storage.Type),
		slog.String("index_path", d.Config.Search.IndexPath))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	jwtSecret := []byte(d.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		return fmt.Errorf("jwt secret is required")
	}

	d.AuthService = userservice.New(d.UserRepo, jwtSecret, d.Logger)

	// Categorization service for statement transaction enrichment
	d.Categorization = categorization.NewService(d.CategoryRepo, d.Logger)

	// Due-date reminders go out by mail; without Resend credentials the
	// sweep queues silently and the mailer stays nil.
	var mailer reminderservice.Mailer
	if d.Config.Mail.ResendAPIKey != "" && d.Config.Mail.FromEmail != "" {
		mailer = reminderservice.NewResendMailer(d.Config.Mail.ResendAPIKey, d.Config.Mail.FromEmail)
	} else {
		d.Logger.Warn("resend credentials missing, reminder mail disabled")
	}
	d.Reminders = reminderservice.New(d.ReminderRepo, d.UserRepo, mailer, d.Logger)

	// Text extraction chain: embedded text layer first, OCR only for
	// scanned pages with images
	extractor := pdf.NewExtractor(d.Logger)
	var ocrClient *ocr.Client
	if d.Config.OCR.Enabled {
		ocrClient = ocr.New(d.Logger,
			ocr.WithLanguage(d.Config.OCR.Language),
			ocr.WithDPI(d.Config.OCR.DPI),
		)
	} else {
		d.Logger.Info("ocr disabled, scanned documents will be rejected")
	}
	textSource := ocr.NewTextSource(extractor, extractor, ocrClient)

	d.DocumentService = documentservice.New(textSource, d.DocumentRepo, d.SearchIndex, d.Reminders, d.Logger)
	d.Confirmations = confirmation.New(d.DocumentService, d.Logger)

	caps := parser.Capabilities{
		Text:           textSource,
		TablesPrimary:  pdf.NewColumnTables(extractor),
		TablesFallback: pdf.NewGapTables(extractor),
		TextLayer:      extractor,
	}
	d.StatementService = statementservice.New(caps, d.StatementRepo, newCategorizationAdapter(d.Categorization), d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Error("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
