package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/normalizer"
	statementservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/service"
)

// categorizationAdapter adapts categorization.Service to the statement
// service's Categorizers interface
type categorizationAdapter struct {
	svc *categorization.Service
}

// newCategorizationAdapter creates a new adapter
func newCategorizationAdapter(svc *categorization.Service) statementservice.Categorizers {
	return &categorizationAdapter{svc: svc}
}

// ForUser implements statementservice.Categorizers. The returned categorizer
// carries the user's custom rules compiled together with the builtin table.
func (a *categorizationAdapter) ForUser(ctx context.Context, userID uuid.UUID) normalizer.Categorizer {
	return a.svc.ForUser(ctx, userID)
}
