package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/bank"
	statementrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/repository"
	statementservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/storage"
)

// statementSubmission is the JSON body of POST /v1/statements when re-running
// an archived upload.
type statementSubmission struct {
	UploadID string `json:"upload_id"`
	Filename string `json:"filename"`
	Password string `json:"password"`
	Bank     string `json:"bank"`
}

// importStatementHandler runs one statement file through the import pipeline.
// POST /v1/statements
func importStatementHandler(stmtSvc *statementservice.Service, uploads storage.Storage, metrics *observability.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/statements")
		defer span.End()

		userID := UserIDFromContext(ctx)
		up, uploadID, ok := readStatementUpload(ctx, w, r, uploads, logger)
		if !ok {
			return
		}

		start := time.Now()
		imp, err := stmtSvc.Process(ctx, userID, up)
		if errors.Is(err, statement.ErrPasswordRequired) {
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":     "password_required",
				"upload_id": uploadID,
				"hint":      "resend as JSON with upload_id and password",
			})
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		source := string(imp.Statement.Source)
		span.SetAttributes(
			attribute.String("statement.source", source),
			attribute.String("statement.state", string(imp.State)),
			attribute.Int("statement.fresh", imp.Fresh),
		)
		metrics.RecordStatementImport(source, string(imp.State), time.Since(start))
		if imp.Statement.Strategy != "" {
			metrics.IncrStrategyWin(imp.Statement.Strategy)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"import":    imp,
			"upload_id": uploadID,
		})
	}
}

// readStatementUpload mirrors readSubmission for the statement pipeline:
// multipart file with optional bank and password fields, or JSON naming an
// archived upload_id.
func readStatementUpload(ctx context.Context, w http.ResponseWriter, r *http.Request, uploads storage.Storage, logger *slog.Logger) (statementservice.Upload, string, bool) {
	var up statementservice.Upload

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return up, "", false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return up, "", false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read upload")
			return up, "", false
		}

		up.Data = data
		up.Filename = header.Filename
		up.Password = r.FormValue("password")
		up.BankHint = r.FormValue("bank")

		var uploadID string
		if uploads != nil {
			info, err := uploads.Upload(ctx, UserIDFromContext(ctx),
				header.Filename, header.Header.Get("Content-Type"), bytes.NewReader(data))
			if err != nil {
				logger.Warn("archiving upload failed",
					slog.String("filename", header.Filename),
					slog.Any("error", err))
			} else {
				uploadID = info.ID.String()
			}
		}
		return up, uploadID, true
	}

	var sub statementSubmission
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return up, "", false
	}
	if sub.UploadID == "" {
		writeError(w, http.StatusBadRequest, "send a multipart file or an upload_id")
		return up, "", false
	}

	fileID, err := uuid.Parse(sub.UploadID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upload_id is not a valid id")
		return up, "", false
	}
	if uploads == nil {
		writeError(w, http.StatusNotFound, "upload archive not configured")
		return up, "", false
	}
	rc, err := uploads.GetReader(ctx, UserIDFromContext(ctx), fileID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown upload_id")
		return up, "", false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not open archived upload")
		return up, "", false
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read archived upload")
		return up, "", false
	}

	filename := sub.Filename
	if filename == "" {
		if info, err := uploads.GetInfo(ctx, UserIDFromContext(ctx), fileID); err == nil {
			filename = info.Name
		}
	}

	up.Data = data
	up.Filename = filename
	up.Password = sub.Password
	up.BankHint = sub.Bank
	return up, sub.UploadID, true
}

// listStatementsHandler pages through the user's imported statements,
// newest first, without transaction bodies.
// GET /v1/statements
func listStatementsHandler(repo *statementrepo.Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/statements")
		defer span.End()

		if repo == nil {
			writeJSON(w, http.StatusOK, map[string]any{"statements": []*statement.Statement{}})
			return
		}

		limit, offset := parsePagination(r)
		statements, err := repo.ListStatements(ctx, UserIDFromContext(ctx), limit, offset)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if statements == nil {
			statements = []*statement.Statement{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"statements": statements})
	}
}

// getStatementHandler returns one statement with its transactions.
// GET /v1/statements/{statementID}
func getStatementHandler(repo *statementrepo.Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/statements/{statementID}")
		defer span.End()

		id, err := uuid.Parse(chi.URLParam(r, "statementID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "statement id is not a valid id")
			return
		}
		if repo == nil {
			writeError(w, http.StatusNotFound, "statement not found")
			return
		}

		st, err := repo.GetStatement(ctx, UserIDFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if st == nil {
			writeError(w, http.StatusNotFound, "statement not found")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// listBanksHandler returns the issuer profiles the identifier knows about,
// so the client can offer a bank picker for the explicit-hint path.
// GET /v1/statements/banks
func listBanksHandler() http.HandlerFunc {
	type bankEntry struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		COMPE string `json:"compe,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/statements/banks")
		defer span.End()

		profiles := bank.Profiles()
		banks := make([]bankEntry, 0, len(profiles))
		for _, p := range profiles {
			banks = append(banks, bankEntry{ID: string(p.ID), Name: p.DisplayName, COMPE: p.COMPE})
		}
		writeJSON(w, http.StatusOK, map[string]any{"banks": banks})
	}
}
