package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationTableName = "volunteerhub.applications"

var applicationColumns = utils.StructTagValues(types.Application{})

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

// CreateApplication inserts a pending application. A second application for
// the same opportunity and volunteer trips the unique constraint and is
// reported as types.ErrConstraintViolation.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, app *types.Application) error {
	query, args, err := psql().
		Insert(applicationTableName).
		SetMap(utils.StructToMap(app)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create application query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("create application", err)
	}

	return nil
}

func (r *ApplicationRepository) Application(ctx context.Context, id string) (*types.Application, error) {
	return r.applicationWhere(ctx, r.pool, sq.Eq{"id": id})
}

func (r *ApplicationRepository) ApplicationFor(ctx context.Context, opportunityID, volunteerID string) (*types.Application, error) {
	return r.applicationWhere(ctx, r.pool, sq.Eq{"opportunity_id": opportunityID, "volunteer_id": volunteerID})
}

func (r *ApplicationRepository) applicationWhere(ctx context.Context, db pgxscan.Querier, where sq.Eq) (*types.Application, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var app types.Application
	err = getOne(ctx, db, &app, types.ErrApplicationNotFound, "fetch application", query, args...)
	if err != nil {
		return nil, err
	}

	return &app, nil
}

func (r *ApplicationRepository) ApplicationsByOpportunity(ctx context.Context, opportunityID string) ([]*types.Application, error) {
	return r.applicationsWhere(ctx, sq.Eq{"opportunity_id": opportunityID})
}

func (r *ApplicationRepository) ApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]*types.Application, error) {
	return r.applicationsWhere(ctx, sq.Eq{"volunteer_id": volunteerID})
}

func (r *ApplicationRepository) applicationsWhere(ctx context.Context, where sq.Eq) ([]*types.Application, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(where).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications query: %w", err)
	}

	var apps []*types.Application
	err = pgxscan.Select(ctx, r.pool, &apps, query, args...)
	if err != nil {
		return nil, storageError("fetch applications", err)
	}

	return apps, nil
}

// HasAcceptedEngagement reports whether volunteerID holds an accepted
// application to any opportunity owned by ngoID.
func (r *ApplicationRepository) HasAcceptedEngagement(ctx context.Context, ngoID, volunteerID string) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(applicationTableName + " a").
		Join(opportunityTableName + " o ON o.id = a.opportunity_id").
		Where(sq.Eq{
			"o.ngo_id":       ngoID,
			"a.volunteer_id": volunteerID,
			"a.status":       string(types.ApplicationStatusAccepted),
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate engagement query: %w", err)
	}

	var found int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, storageError("check engagement", err)
	}

	return true, nil
}

// AcceptedApplicationsForNGO returns the accepted applications across every
// opportunity ngoID owns, oldest decision first.
func (r *ApplicationRepository) AcceptedApplicationsForNGO(ctx context.Context, ngoID string) ([]*types.Application, error) {
	columns := make([]string, 0, len(applicationColumns))
	for _, col := range applicationColumns {
		columns = append(columns, "a."+col)
	}

	query, args, err := psql().
		Select(columns...).
		From(applicationTableName+" a").
		Join(opportunityTableName+" o ON o.id = a.opportunity_id").
		Where(sq.Eq{
			"o.ngo_id": ngoID,
			"a.status": string(types.ApplicationStatusAccepted),
		}).
		OrderBy("a.decided_at ASC", "a.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate accepted applications query: %w", err)
	}

	var apps []*types.Application
	err = pgxscan.Select(ctx, r.pool, &apps, query, args...)
	if err != nil {
		return nil, storageError("fetch accepted applications", err)
	}

	return apps, nil
}

// decide moves a pending application to status. Zero rows means the
// application is missing or already decided.
func (r *ApplicationRepository) decide(ctx context.Context, tx pgx.Tx, applicationID string, status types.ApplicationStatus, deciderID string, decidedAt time.Time) (*types.Application, error) {
	query, args, err := psql().
		Update(applicationTableName).
		Set("status", string(status)).
		Set("decided_by", deciderID).
		Set("decided_at", decidedAt).
		Set("updated_at", decidedAt).
		Where(sq.Eq{"id": applicationID, "status": string(types.ApplicationStatusPending)}).
		Suffix(returning(applicationColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate decide application query: %w", err)
	}

	var app types.Application
	err = pgxscan.Get(ctx, tx, &app, query, args...)
	if err == nil {
		return &app, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, storageError("decide application", err)
	}

	current, err := r.applicationWhere(ctx, tx, sq.Eq{"id": applicationID})
	if err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: application is %s", types.ErrInvalidTransition, current.Status)
}

// AcceptApplication flips the application and increments spots_filled in
// one transaction. The increment is conditional on spots_filled staying
// below spots_available, so two concurrent accepts for the last spot cannot
// both succeed.
func (r *ApplicationRepository) AcceptApplication(ctx context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, *types.Opportunity, error) {
	var (
		app *types.Application
		opp types.Opportunity
	)

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		app, err = r.decide(ctx, tx, applicationID, types.ApplicationStatusAccepted, deciderID, decidedAt)
		if err != nil {
			return err
		}

		query, args, err := psql().
			Update(opportunityTableName).
			Set("spots_filled", sq.Expr("spots_filled + 1")).
			Set("updated_at", decidedAt).
			Where(sq.Eq{"id": app.OpportunityID}).
			Where(sq.Expr("spots_filled < spots_available")).
			Suffix(returning(opportunityColumns)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate increment spots query: %w", err)
		}

		err = pgxscan.Get(ctx, tx, &opp, query, args...)
		if err != nil {
			if pgxscan.NotFound(err) {
				return fmt.Errorf("%w: opportunity %s has no spots remaining", types.ErrConstraintViolation, app.OpportunityID)
			}
			return storageError("increment spots filled", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return app, &opp, nil
}

func (r *ApplicationRepository) RejectApplication(ctx context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, error) {
	var app *types.Application

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		app, err = r.decide(ctx, tx, applicationID, types.ApplicationStatusRejected, deciderID, decidedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	return app, nil
}
