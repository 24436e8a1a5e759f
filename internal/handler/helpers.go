package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/confirmation"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/boleto"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/ocr"
)

type errorResponse struct {
	Error string `json:"error"`
	// Hint tells the user what to do about it, when there is something
	// to do.
	Hint string `json:"hint,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorHint(w http.ResponseWriter, status int, msg, hint string) {
	writeJSON(w, status, errorResponse{Error: msg, Hint: hint})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return
}

// handleServiceError maps domain errors to HTTP responses. Recoverable
// conditions carry a remediation hint; anything unmapped is a plain 500.
func handleServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var validation *confirmation.ValidationError
	var malformed *boleto.MalformedCodeError

	switch {
	case errors.As(err, &validation):
		logger.Debug("edit rejected", slog.Any("error", err))
		writeErrorHint(w, http.StatusBadRequest, err.Error(),
			"fix the value and send the edit again; the pending document is unchanged")

	case errors.As(err, &malformed):
		logger.Debug("malformed payment code", slog.Any("error", err))
		writeErrorHint(w, http.StatusBadRequest, err.Error(),
			"retype the digits from the document; a boleto code has 44, 47 or 48 digits")

	case errors.Is(err, confirmation.ErrNothingPending):
		writeErrorHint(w, http.StatusNotFound, err.Error(),
			"submit a document first, then edit or confirm it")

	case errors.Is(err, confirmation.ErrInvalidActionSet):
		writeErrorHint(w, http.StatusBadRequest, err.Error(),
			"valid actions are schedule_reminder, record_expense and mark_paid")

	case errors.Is(err, categorization.ErrInvalidRule):
		writeErrorHint(w, http.StatusBadRequest, err.Error(),
			"the pattern must contain letters or digits and the category must come from GET /v1/categories")

	case errors.Is(err, categorization.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, statement.ErrPasswordRequired):
		writeErrorHint(w, http.StatusPaymentRequired, "password_required",
			"this PDF is encrypted; resend it with the password field set")

	case errors.Is(err, statement.ErrEmptyDocument):
		writeErrorHint(w, http.StatusUnprocessableEntity, err.Error(),
			"the file has no readable content; check that the upload is complete")

	case errors.Is(err, statement.ErrNoTransactions):
		writeErrorHint(w, http.StatusUnprocessableEntity, err.Error(),
			"no transaction lines were found; a clearer scan or a CSV/OFX export of the same period usually works")

	case errors.Is(err, statement.ErrBankNotRecognized):
		writeErrorHint(w, http.StatusUnprocessableEntity, err.Error(),
			"pass the issuing bank explicitly via the bank field")

	case errors.Is(err, ocr.ErrUnavailable):
		logger.Error("ocr capability down", slog.Any("error", err))
		writeErrorHint(w, http.StatusServiceUnavailable, "ocr unavailable",
			"scanned-document reading is temporarily off; try again in a minute or paste the text")

	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timed out", slog.Any("error", err))
		writeError(w, http.StatusGatewayTimeout, "request timed out")

	default:
		logger.Error("unhandled error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
