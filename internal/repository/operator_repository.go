package repository

import (
	"context"
	"errors"
	"fmt"

	"coupon-admin/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// operatorRepository implements the OperatorRepository interface using PostgreSQL.
type operatorRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOperatorRepository creates a new PostgreSQL-backed operator repository.
func NewOperatorRepository(pool *pgxpool.Pool, logger zerolog.Logger) OperatorRepository {
	return &operatorRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "operator").Logger(),
	}
}

// GetByName retrieves an operator by name.
func (r *operatorRepository) GetByName(ctx context.Context, name string) (*model.Operator, error) {
	var op model.Operator
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM operators WHERE name = $1`, name,
	).Scan(&op.ID, &op.Name, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("operator", name).Msg("operator not found")
			return nil, model.ErrOperatorNotFound.WithMessage(fmt.Sprintf("operator %q not found", name))
		}
		r.logger.Error().Err(err).Str("operator", name).Msg("failed to query operator")
		return nil, fmt.Errorf("failed to query operator: %w", err)
	}
	return &op, nil
}

// Create inserts a new operator.
func (r *operatorRepository) Create(ctx context.Context, name string) (*model.Operator, error) {
	op := model.Operator{Name: name}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO operators (name) VALUES ($1) RETURNING id, created_at`, name,
	).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("operator", name).Msg("failed to create operator")
		if mapped := mapPgError(err, fmt.Sprintf("operator %q", name)); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	r.logger.Debug().Int64("operator_id", op.ID).Msg("operator created successfully")
	return &op, nil
}
