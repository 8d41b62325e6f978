package store

import (
	"context"
	"fmt"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const opportunityTableName = "volunteerhub.opportunities"

var opportunityColumns = utils.StructTagValues(types.Opportunity{})

type OpportunityRepository struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepository(pool *pgxpool.Pool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

func (r *OpportunityRepository) CreateOpportunity(ctx context.Context, opp *types.Opportunity) error {
	if opp.RequiredSkills == nil {
		opp.RequiredSkills = []string{}
	}

	query, args, err := psql().
		Insert(opportunityTableName).
		SetMap(utils.StructToMap(opp)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create opportunity query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("create opportunity", err)
	}

	return nil
}

func (r *OpportunityRepository) Opportunity(ctx context.Context, id string) (*types.Opportunity, error) {
	query, args, err := psql().
		Select(opportunityColumns...).
		From(opportunityTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate opportunity query: %w", err)
	}

	var opp types.Opportunity
	err = getOne(ctx, r.pool, &opp, types.ErrOpportunityNotFound, "fetch opportunity", query, args...)
	if err != nil {
		return nil, err
	}

	return &opp, nil
}

func (r *OpportunityRepository) Opportunities(ctx context.Context, filter types.OpportunityFilter) ([]*types.Opportunity, error) {
	builder := psql().
		Select(opportunityColumns...).
		From(opportunityTableName).
		OrderBy("created_at DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.NGOID != "" {
		builder = builder.Where(sq.Eq{"ngo_id": filter.NGOID})
	}
	if filter.CauseArea != "" {
		builder = builder.Where(sq.Eq{"cause_area": filter.CauseArea})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate opportunities query: %w", err)
	}

	var opps []*types.Opportunity
	err = pgxscan.Select(ctx, r.pool, &opps, query, args...)
	if err != nil {
		return nil, storageError("fetch opportunities", err)
	}

	return opps, nil
}

// UpdateOpportunity writes the editable fields only. ngo_id, spots_filled
// and status are owned by other operations. The range check constraint
// rejects a capacity below spots_filled.
func (r *OpportunityRepository) UpdateOpportunity(ctx context.Context, opp *types.Opportunity) (*types.Opportunity, error) {
	if opp.RequiredSkills == nil {
		opp.RequiredSkills = []string{}
	}

	query, args, err := psql().
		Update(opportunityTableName).
		SetMap(map[string]any{
			"title":                 opp.Title,
			"description":           opp.Description,
			"location":              opp.Location,
			"cause_area":            opp.CauseArea,
			"required_skills":       opp.RequiredSkills,
			"commitment_level":      opp.CommitmentLevel,
			"time_commitment_hours": opp.TimeCommitmentHours,
			"start_date":            opp.StartDate,
			"end_date":              opp.EndDate,
			"spots_available":       opp.SpotsAvailable,
			"updated_at":            time.Now(),
		}).
		Where(sq.Eq{"id": opp.ID}).
		Suffix(returning(opportunityColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update opportunity query: %w", err)
	}

	var updated types.Opportunity
	err = getOne(ctx, r.pool, &updated, types.ErrOpportunityNotFound, "update opportunity", query, args...)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *OpportunityRepository) SetOpportunityStatus(ctx context.Context, id string, status types.OpportunityStatus) (*types.Opportunity, error) {
	query, args, err := psql().
		Update(opportunityTableName).
		Set("status", string(status)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Suffix(returning(opportunityColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate set opportunity status query: %w", err)
	}

	var updated types.Opportunity
	err = getOne(ctx, r.pool, &updated, types.ErrOpportunityNotFound, "set opportunity status", query, args...)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteOpportunity removes the row; applications go with it through
// ON DELETE CASCADE.
func (r *OpportunityRepository) DeleteOpportunity(ctx context.Context, id string) error {
	query, args, err := psql().
		Delete(opportunityTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete opportunity query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("delete opportunity", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrOpportunityNotFound
	}

	return nil
}
