package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	userservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/service"
)

// authTokenHandler exchanges a provisioned API token for a short-lived JWT.
// POST /v1/auth/token
func authTokenHandler(authSvc *userservice.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/token")
		defer span.End()

		var req struct {
			Email    string `json:"email"`
			APIToken string `json:"api_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.APIToken == "" {
			writeError(w, http.StatusBadRequest, "email and api_token are required")
			return
		}

		u, err := authSvc.Authenticate(ctx, req.Email, req.APIToken)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		signed, expires, err := authSvc.IssueJWT(u)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": signed,
			"token_type":   "Bearer",
			"expires_at":   expires.Format(time.RFC3339),
		})
	}
}
