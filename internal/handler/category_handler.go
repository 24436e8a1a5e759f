package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
)

// listCategoriesHandler returns the fixed category vocabulary.
// GET /v1/categories
func listCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"categories": categorization.Categories()})
	}
}

// suggestCategoryHandler dry-runs one description through the user's rules,
// so a rule can be checked before any statement depends on it.
// GET /v1/categories/suggest?description=...
func suggestCategoryHandler(catSvc *categorization.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories/suggest")
		defer span.End()

		description := strings.TrimSpace(r.URL.Query().Get("description"))
		if description == "" {
			writeError(w, http.StatusBadRequest, "description is required")
			return
		}
		writeJSON(w, http.StatusOK, catSvc.Categorize(ctx, UserIDFromContext(ctx), description))
	}
}

// listRulesHandler returns the user's own categorization rules.
// GET /v1/categories/rules
func listRulesHandler(catSvc *categorization.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories/rules")
		defer span.End()

		rules, err := catSvc.Rules(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rules == nil {
			rules = []categorization.Rule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
	}
}

// createRuleHandler adds one categorization rule for the user.
// POST /v1/categories/rules
func createRuleHandler(catSvc *categorization.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories/rules")
		defer span.End()

		var req struct {
			Pattern   string  `json:"pattern"`
			Category  string  `json:"category"`
			CleanName *string `json:"clean_name"`
			Priority  int     `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Pattern == "" || req.Category == "" {
			writeError(w, http.StatusBadRequest, "pattern and category are required")
			return
		}

		rule := &categorization.Rule{
			UserID:    UserIDFromContext(ctx),
			Pattern:   req.Pattern,
			Category:  req.Category,
			CleanName: req.CleanName,
			Priority:  req.Priority,
		}
		if err := catSvc.CreateRule(ctx, rule); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

// deleteRuleHandler removes one of the user's rules.
// DELETE /v1/categories/rules/{ruleID}
func deleteRuleHandler(catSvc *categorization.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/categories/rules/{ruleID}")
		defer span.End()

		ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "rule id is not a valid id")
			return
		}
		if err := catSvc.DeleteRule(ctx, UserIDFromContext(ctx), ruleID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
