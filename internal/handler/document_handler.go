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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/confirmation"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	documentrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/repository"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/search"
	documentservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/storage"
)

// Uploads beyond this size are rejected before they reach the pipeline.
const maxUploadBytes = 20 << 20

// submission is the JSON body of POST /v1/documents when no file is attached:
// pasted text, or an archived upload to re-run with a password.
type submission struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	UploadID string `json:"upload_id"`
	Password string `json:"password"`
}

// documentResponse is the envelope for a fresh extraction: the scored result,
// the actions the user may pick at confirmation, and the archive id for
// password retries.
type documentResponse struct {
	Result       *document.ExtractionResult `json:"result"`
	ValidActions []document.Action          `json:"valid_actions"`
	UploadID     string                     `json:"upload_id,omitempty"`
}

var allActions = []document.Action{
	document.ActionScheduleReminder,
	document.ActionRecordExpense,
	document.ActionMarkPaid,
}

// submitDocumentHandler runs the classify-and-extract pipeline on one
// submission and parks the result for confirmation.
// POST /v1/documents
func submitDocumentHandler(docSvc *documentservice.Service, flow *confirmation.Workflow, uploads storage.Storage, metrics *observability.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/documents")
		defer span.End()

		userID := UserIDFromContext(ctx)
		in, uploadID, ok := readSubmission(ctx, w, r, uploads, logger)
		if !ok {
			return
		}

		res, err := docSvc.ClassifyAndExtract(ctx, in)
		if errors.Is(err, statement.ErrPasswordRequired) {
			// The upload is already archived; the retry needs only the id
			// and the password.
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
		span.SetAttributes(attribute.String("document.type", string(res.Type)))
		metrics.IncrDocumentProcessed(string(res.Type))

		flow.Begin(userID, res)
		writeJSON(w, http.StatusOK, documentResponse{
			Result:       res,
			ValidActions: allActions,
			UploadID:     uploadID,
		})
	}
}

// readSubmission builds the pipeline input from either a multipart file, a
// JSON body with pasted text, or an archived upload id. A multipart file is
// archived before processing so a password failure does not cost a re-upload;
// archiving trouble is logged and the request continues without an id.
func readSubmission(ctx context.Context, w http.ResponseWriter, r *http.Request, uploads storage.Storage, logger *slog.Logger) (documentservice.Input, string, bool) {
	var in documentservice.Input

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return in, "", false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return in, "", false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read upload")
			return in, "", false
		}

		in.Data = data
		in.Filename = header.Filename
		in.Password = r.FormValue("password")

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
		return in, uploadID, true
	}

	var sub submission
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return in, "", false
	}

	if sub.UploadID != "" {
		fileID, err := uuid.Parse(sub.UploadID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "upload_id is not a valid id")
			return in, "", false
		}
		if uploads == nil {
			writeError(w, http.StatusNotFound, "upload archive not configured")
			return in, "", false
		}
		rc, err := uploads.GetReader(ctx, UserIDFromContext(ctx), fileID)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown upload_id")
			return in, "", false
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not open archived upload")
			return in, "", false
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not read archived upload")
			return in, "", false
		}
		in.Data = data
		in.Filename = sub.Filename
		in.Password = sub.Password
		return in, sub.UploadID, true
	}

	if strings.TrimSpace(sub.Text) == "" {
		writeError(w, http.StatusBadRequest, "send a file, text, or an upload_id")
		return in, "", false
	}
	in.Text = sub.Text
	in.Filename = sub.Filename
	return in, "", true
}

// listDocumentsHandler searches or lists confirmed documents.
// GET /v1/documents?q=...&type=...&limit=...&offset=...
func listDocumentsHandler(repo *documentrepo.Repository, index *search.Index, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/documents")
		defer span.End()

		userID := UserIDFromContext(ctx)
		limit, offset := parsePagination(r)

		q := strings.TrimSpace(r.URL.Query().Get("q"))
		docType := strings.TrimSpace(r.URL.Query().Get("type"))

		switch {
		case q != "" && index != nil:
			hits, err := index.Search(userID, q, limit)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"hits": searchHits(hits)})

		case docType != "" && index != nil:
			hits, err := index.SearchByType(userID, document.Type(docType), limit)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"hits": searchHits(hits)})

		default:
			if repo == nil {
				writeJSON(w, http.StatusOK, map[string]any{"documents": []documentrepo.Confirmed{}})
				return
			}
			docs, err := repo.List(ctx, userID, limit, offset)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if docs == nil {
				docs = []documentrepo.Confirmed{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
		}
	}
}

type searchHit struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Beneficiary string  `json:"beneficiary,omitempty"`
	Payer       string  `json:"payer,omitempty"`
	Value       string  `json:"value,omitempty"`
	DueDate     string  `json:"due_date,omitempty"`
	Confidence  float64 `json:"confidence"`
	Score       float64 `json:"score"`
}

func searchHits(results []search.Result) []searchHit {
	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{
			ID:          res.Entry.ID,
			Type:        res.Entry.Type,
			Beneficiary: res.Entry.Beneficiary,
			Payer:       res.Entry.Payer,
			Value:       res.Entry.Value,
			DueDate:     res.Entry.DueDate,
			Confidence:  res.Entry.Confidence,
			Score:       res.Score,
		})
	}
	return hits
}

// getDocumentHandler returns one confirmed document.
// GET /v1/documents/{documentID}
func getDocumentHandler(repo *documentrepo.Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/documents/{documentID}")
		defer span.End()

		id, err := uuid.Parse(chi.URLParam(r, "documentID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "document id is not a valid id")
			return
		}
		if repo == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}

		doc, err := repo.Get(ctx, UserIDFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if doc == nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// pendingConfirmationHandler returns the extraction waiting for a decision.
// GET /v1/confirmations/pending
func pendingConfirmationHandler(flow *confirmation.Workflow, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/confirmations/pending")
		defer span.End()

		res, ok := flow.Pending(UserIDFromContext(ctx))
		if !ok {
			handleServiceError(w, confirmation.ErrNothingPending, logger)
			return
		}
		writeJSON(w, http.StatusOK, documentResponse{Result: res, ValidActions: allActions})
	}
}

// editConfirmationHandler corrects one field of the pending result.
// POST /v1/confirmations/edit
func editConfirmationHandler(flow *confirmation.Workflow, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/confirmations/edit")
		defer span.End()

		var req struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Field == "" {
			writeError(w, http.StatusBadRequest, "field is required")
			return
		}

		res, err := flow.ApplyEdit(UserIDFromContext(ctx), document.FieldKind(req.Field), req.Value)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, documentResponse{Result: res, ValidActions: allActions})
	}
}

// confirmHandler closes the pending result with the chosen actions.
// POST /v1/confirmations/confirm
func confirmHandler(flow *confirmation.Workflow, metrics *observability.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/confirmations/confirm")
		defer span.End()

		var req struct {
			Actions []string `json:"actions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		actions := make([]document.Action, 0, len(req.Actions))
		for _, a := range req.Actions {
			actions = append(actions, document.Action(a))
		}

		doc, err := flow.Confirm(ctx, UserIDFromContext(ctx), actions)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		metrics.IncrConfirmation("confirmed")
		writeJSON(w, http.StatusOK, doc)
	}
}

// cancelConfirmationHandler drops the pending result.
// POST /v1/confirmations/cancel
func cancelConfirmationHandler(flow *confirmation.Workflow, metrics *observability.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/confirmations/cancel")
		defer span.End()

		dropped := flow.Cancel(UserIDFromContext(ctx))
		if dropped {
			metrics.IncrConfirmation("cancelled")
		}
		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": dropped})
	}
}
