package store

import (
	"context"
	"fmt"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reviewTableName      = "volunteerhub.reviews"
	adminActionTableName = "volunteerhub.admin_actions"
)

var (
	reviewColumns      = utils.StructTagValues(types.Review{})
	adminActionColumns = utils.StructTagValues(types.AdminAction{})
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) CreateReview(ctx context.Context, review *types.Review) error {
	query, args, err := psql().
		Insert(reviewTableName).
		SetMap(utils.StructToMap(review)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create review query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("create review", err)
	}

	return nil
}

func (r *ReviewRepository) ReviewsFor(ctx context.Context, reviewedID string) ([]*types.Review, error) {
	query, args, err := psql().
		Select(reviewColumns...).
		From(reviewTableName).
		Where(sq.Eq{"reviewed_id": reviewedID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reviews query: %w", err)
	}

	var reviews []*types.Review
	err = pgxscan.Select(ctx, r.pool, &reviews, query, args...)
	if err != nil {
		return nil, storageError("fetch reviews", err)
	}

	return reviews, nil
}

// AdminActionRepository is the append-only audit trail of admin changes.
type AdminActionRepository struct {
	pool *pgxpool.Pool
}

func NewAdminActionRepository(pool *pgxpool.Pool) *AdminActionRepository {
	return &AdminActionRepository{pool: pool}
}

func (r *AdminActionRepository) RecordAdminAction(ctx context.Context, action *types.AdminAction) error {
	query, args, err := psql().
		Insert(adminActionTableName).
		SetMap(utils.StructToMap(action)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate record admin action query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("record admin action", err)
	}

	return nil
}

func (r *AdminActionRepository) AdminActions(ctx context.Context, limit uint64) ([]*types.AdminAction, error) {
	builder := psql().
		Select(adminActionColumns...).
		From(adminActionTableName).
		OrderBy("created_at DESC")

	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin actions query: %w", err)
	}

	var actions []*types.AdminAction
	err = pgxscan.Select(ctx, r.pool, &actions, query, args...)
	if err != nil {
		return nil, storageError("fetch admin actions", err)
	}

	return actions, nil
}
