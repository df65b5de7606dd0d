package repository

import (
	"context"

	"tricycle/internal/domain"
)

// PartyRepository reads customer and driver summaries for populated ride
// responses. Writes happen in the external registration service.
type PartyRepository interface {
	// GetCustomer retrieves a customer summary by ID.
	GetCustomer(ctx context.Context, id string) (*domain.PartySummary, error)

	// GetDriver retrieves a driver summary by ID.
	GetDriver(ctx context.Context, id string) (*domain.PartySummary, error)
}
