package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tricycle/internal/domain"
	"tricycle/internal/repository"
)

// PartyRepository is a PostgreSQL implementation of repository.PartyRepository.
type PartyRepository struct {
	q Querier
}

// NewPartyRepository creates a new PostgreSQL party repository.
func NewPartyRepository(db *sql.DB) *PartyRepository {
	return &PartyRepository{q: db}
}

// GetCustomer retrieves a customer summary by ID.
func (r *PartyRepository) GetCustomer(ctx context.Context, id string) (*domain.PartySummary, error) {
	return r.getSummary(ctx, `SELECT id, full_name, phone FROM customers WHERE id = $1`, id)
}

// GetDriver retrieves a driver summary by ID.
func (r *PartyRepository) GetDriver(ctx context.Context, id string) (*domain.PartySummary, error) {
	return r.getSummary(ctx, `SELECT id, full_name, phone FROM drivers WHERE id = $1`, id)
}

func (r *PartyRepository) getSummary(ctx context.Context, query, id string) (*domain.PartySummary, error) {
	var p domain.PartySummary
	err := r.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.FullName, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
