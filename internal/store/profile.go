package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	profileTableName    = "volunteerhub.profiles"
	ngoDetailsTableName = "volunteerhub.ngo_details"
)

var (
	profileColumns    = utils.StructTagValues(types.Profile{})
	ngoDetailsColumns = utils.StructTagValues(types.NGODetails{})

	profileReturning    = returning(profileColumns)
	ngoDetailsReturning = returning(ngoDetailsColumns)
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func approvalStatusStrings(statuses []types.ApprovalStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func (r *ProfileRepository) Profile(ctx context.Context, id string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = getOne(ctx, r.pool, &profile, types.ErrProfileNotFound, "fetch profile", query, args...)
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *types.Profile) error {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query, args, err := psql().
		Insert(profileTableName).
		SetMap(utils.StructToMap(profile)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create profile query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("create profile", err)
	}

	return nil
}

// SetUserType changes a profile's role. It is used to grant admin access.
func (r *ProfileRepository) SetUserType(ctx context.Context, id string, userType types.UserType) error {
	query, args, err := psql().
		Update(profileTableName).
		Set("user_type", string(userType)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate set user type query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("set user type", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfileNotFound
	}

	return nil
}

func (r *ProfileRepository) ProfilesByApprovalStatus(ctx context.Context, statuses ...types.ApprovalStatus) ([]*types.Profile, error) {
	builder := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"user_type": string(types.UserTypeNGO)}).
		OrderBy("updated_at ASC")

	if len(statuses) > 0 {
		builder = builder.Where(sq.Eq{"approval_status": approvalStatusStrings(statuses)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profiles-by-status query: %w", err)
	}

	var profiles []*types.Profile
	err = pgxscan.Select(ctx, r.pool, &profiles, query, args...)
	if err != nil {
		return nil, storageError("fetch profiles by approval status", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) NGODetails(ctx context.Context, profileID string) (*types.NGODetails, error) {
	query, args, err := psql().
		Select(ngoDetailsColumns...).
		From(ngoDetailsTableName).
		Where(sq.Eq{"profile_id": profileID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ngo details query: %w", err)
	}

	var details types.NGODetails
	err = getOne(ctx, r.pool, &details, types.ErrNGODetailsNotFound, "fetch ngo details", query, args...)
	if err != nil {
		return nil, err
	}

	return &details, nil
}

// transitionMiss tells a missing profile apart from a failed status guard
// after a conditional update matched no rows.
func (r *ProfileRepository) transitionMiss(ctx context.Context, db pgxscan.Querier, profileID string) error {
	query, args, err := psql().
		Select("approval_status").
		From(profileTableName).
		Where(sq.Eq{"id": profileID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate approval status query: %w", err)
	}

	var current string
	err = getOne(ctx, db, &current, types.ErrProfileNotFound, "fetch approval status", query, args...)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: ngo %s is %q", types.ErrInvalidTransition, profileID, current)
}

// SubmitNGORegistration updates the representative fields and upserts the
// details row in one transaction. The profile update is guarded on the
// current approval status so a concurrent review cannot be overwritten.
func (r *ProfileRepository) SubmitNGORegistration(ctx context.Context, profileID string, from []types.ApprovalStatus, reg *types.NGORegistration) (*types.Profile, error) {
	now := time.Now()
	rep := reg.Representative

	var profile types.Profile
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		query, args, err := psql().
			Update(profileTableName).
			SetMap(map[string]any{
				"first_name":          rep.FirstName,
				"last_name":           utils.TrimmedStringPtr(rep.LastName),
				"phone":               rep.Phone,
				"representative_role": rep.RepresentativeRole,
				"id_proof_type":       rep.IDProofType,
				"id_proof_url":        rep.IDProofURL,
				"approval_status":     string(types.ApprovalStatusPending),
				"approval_reason":     nil,
				"updated_at":          now,
			}).
			Where(sq.Eq{
				"id":              profileID,
				"user_type":       string(types.UserTypeNGO),
				"approval_status": approvalStatusStrings(from),
			}).
			Suffix(profileReturning).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate submit registration query: %w", err)
		}

		err = pgxscan.Get(ctx, tx, &profile, query, args...)
		if err != nil {
			if pgxscan.NotFound(err) {
				return r.transitionMiss(ctx, tx, profileID)
			}
			return storageError("update ngo representative", err)
		}

		details := reg.Details
		details.ProfileID = profileID

		query, args, err = upsertNGODetailsQuery(&details, now)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, query, args...)
		if err != nil {
			return storageError("upsert ngo details", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// upsertNGODetailsQuery inserts or replaces the details row. created_at is
// kept from the first insert.
func upsertNGODetailsQuery(details *types.NGODetails, now time.Time) (string, []any, error) {
	details.CreatedAt = now
	details.UpdatedAt = now

	values := utils.StructToMap(details)
	updates := make([]string, 0, len(values))
	for _, col := range ngoDetailsColumns {
		if col == "profile_id" || col == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	query, args, err := psql().
		Insert(ngoDetailsTableName).
		SetMap(values).
		Suffix("ON CONFLICT (profile_id) DO UPDATE SET " + strings.Join(updates, ", ") + " " + ngoDetailsReturning).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate upsert ngo details query: %w", err)
	}

	return query, args, nil
}

// UpsertNGODetails writes the details row on its own. The profile and its
// approval status are not touched.
func (r *ProfileRepository) UpsertNGODetails(ctx context.Context, details *types.NGODetails) (*types.NGODetails, error) {
	query, args, err := upsertNGODetailsQuery(details, time.Now())
	if err != nil {
		return nil, err
	}

	var saved types.NGODetails
	err = pgxscan.Get(ctx, r.pool, &saved, query, args...)
	if err != nil {
		return nil, storageError("upsert ngo details", err)
	}

	return &saved, nil
}

// UpdateProfile writes the non-nil contact fields. Blank values are stored
// as NULL.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, id string, update *types.ProfileUpdate) (*types.Profile, error) {
	values := map[string]any{"updated_at": time.Now()}
	if update.FirstName != nil {
		values["first_name"] = utils.TrimmedStringPtr(*update.FirstName)
	}
	if update.LastName != nil {
		values["last_name"] = utils.TrimmedStringPtr(*update.LastName)
	}
	if update.Phone != nil {
		values["phone"] = utils.TrimmedStringPtr(*update.Phone)
	}

	query, args, err := psql().
		Update(profileTableName).
		SetMap(values).
		Where(sq.Eq{"id": id}).
		Suffix(profileReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update profile query: %w", err)
	}

	var profile types.Profile
	err = getOne(ctx, r.pool, &profile, types.ErrProfileNotFound, "update profile", query, args...)
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// Profiles lists profiles newest first, optionally narrowed to one role.
func (r *ProfileRepository) Profiles(ctx context.Context, filter types.ProfileFilter) ([]*types.Profile, error) {
	builder := psql().
		Select(profileColumns...).
		From(profileTableName).
		OrderBy("created_at DESC")

	if filter.UserType != "" {
		builder = builder.Where(sq.Eq{"user_type": string(filter.UserType)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profiles query: %w", err)
	}

	var profiles []*types.Profile
	err = pgxscan.Select(ctx, r.pool, &profiles, query, args...)
	if err != nil {
		return nil, storageError("fetch profiles", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) TransitionApproval(ctx context.Context, profileID string, from []types.ApprovalStatus, to types.ApprovalStatus, reason *string) (*types.Profile, error) {
	where := sq.Eq{
		"id":        profileID,
		"user_type": string(types.UserTypeNGO),
	}
	if from != nil {
		where["approval_status"] = approvalStatusStrings(from)
	}

	query, args, err := psql().
		Update(profileTableName).
		Set("approval_status", string(to)).
		Set("approval_reason", reason).
		Set("updated_at", time.Now()).
		Where(where).
		Suffix(profileReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transition approval query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, r.transitionMiss(ctx, r.pool, profileID)
		}
		return nil, storageError("transition approval status", err)
	}

	return &profile, nil
}

func (r *ProfileRepository) SetVerified(ctx context.Context, profileID string, verified bool) (*types.Profile, error) {
	query, args, err := psql().
		Update(profileTableName).
		Set("verified", verified).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": profileID}).
		Suffix(profileReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate set verified query: %w", err)
	}

	var profile types.Profile
	err = getOne(ctx, r.pool, &profile, types.ErrProfileNotFound, "set verified flag", query, args...)
	if err != nil {
		return nil, err
	}

	return &profile, nil
}
