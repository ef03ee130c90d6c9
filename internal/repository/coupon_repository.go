package repository

import (
	"context"
	"fmt"

	"coupon-admin/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var couponColumns = []string{"code", "customer_id", "job_id", "status", "issued_at", "expires_at"}

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// InsertBatch copies coupons into the coupons table inside a fresh transaction.
func (r *couponRepository) InsertBatch(ctx context.Context, coupons []model.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"coupons"},
			couponColumns,
			pgx.CopyFromSlice(len(coupons), func(i int) ([]any, error) {
				c := coupons[i]
				return []any{c.Code, c.CustomerID, c.JobID, string(c.Status), c.IssuedAt, c.ExpiresAt}, nil
			}),
		)
		if err != nil {
			return err
		}
		if int(n) != len(coupons) {
			return fmt.Errorf("copied %d of %d coupons", n, len(coupons))
		}
		return nil
	})
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("job_id", coupons[0].JobID).
			Int("count", len(coupons)).
			Msg("failed to insert coupon batch")
		if mapped := mapPgError(err, "coupon"); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert coupon batch: %w", err)
	}

	r.logger.Debug().
		Int64("job_id", coupons[0].JobID).
		Int("count", len(coupons)).
		Msg("coupon batch inserted successfully")

	return nil
}

// CountByJob returns the number of coupons issued for jobID.
func (r *couponRepository) CountByJob(ctx context.Context, jobID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons WHERE job_id = $1`, jobID).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Int64("job_id", jobID).Msg("failed to count coupons")
		return 0, fmt.Errorf("failed to count coupons: %w", err)
	}
	return count, nil
}
