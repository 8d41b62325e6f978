package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

func validateOpportunitySpec(spec *types.OpportunitySpec) *types.ValidationError {
	spec.Title = strings.TrimSpace(spec.Title)
	spec.Description = strings.TrimSpace(spec.Description)

	skills := make([]string, 0, len(spec.RequiredSkills))
	for _, s := range spec.RequiredSkills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	spec.RequiredSkills = skills

	verr := validateStruct(spec)

	if spec.SpotsAvailable < 1 {
		verr.Add("spots_available", "must be at least 1")
	}

	if spec.StartDate != nil && spec.EndDate != nil && spec.EndDate.Before(*spec.StartDate) {
		verr.Add("endDate", "must not be before startDate")
	}

	return verr
}

func applySpec(opp *types.Opportunity, spec *types.OpportunitySpec) {
	opp.Title = spec.Title
	opp.Description = spec.Description
	opp.Location = spec.Location
	opp.CauseArea = spec.CauseArea
	opp.RequiredSkills = spec.RequiredSkills
	opp.CommitmentLevel = spec.CommitmentLevel
	opp.TimeCommitmentHours = spec.TimeCommitmentHours
	opp.StartDate = spec.StartDate
	opp.EndDate = spec.EndDate
	opp.SpotsAvailable = spec.SpotsAvailable
}

// CreateOpportunity posts a new active opportunity for an approved NGO.
func (e *Engine) CreateOpportunity(ctx context.Context, ngoID string, spec *types.OpportunitySpec) (*types.Opportunity, error) {
	ngo, err := e.profile(ctx, ngoID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown ngo", types.ErrNotAuthorized)
		}
		return nil, err
	}

	if !ngo.IsNGO() || ngo.ApprovalStatus != types.ApprovalStatusApproved {
		return nil, fmt.Errorf("%w: only approved ngos can post opportunities", types.ErrNotAuthorized)
	}

	if spec == nil {
		return nil, types.NewValidationError("opportunity", "is required")
	}

	if verr := validateOpportunitySpec(spec); verr.HasErrors() {
		return nil, verr
	}

	now := e.now()
	opp := &types.Opportunity{
		ID:          utils.NanoID(),
		NGOID:       ngoID,
		SpotsFilled: 0,
		Status:      types.OpportunityStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applySpec(opp, spec)

	if err := e.repos.Opportunities.CreateOpportunity(ctx, opp); err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"opportunity_id":  opp.ID,
		"ngo_id":          ngoID,
		"spots_available": opp.SpotsAvailable,
	}).Info("opportunity created")

	return opp, nil
}

// ownedOpportunity loads an opportunity and checks that ngoID owns it.
func (e *Engine) ownedOpportunity(ctx context.Context, ngoID, opportunityID string) (*types.Opportunity, error) {
	opp, err := e.Opportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}

	if opp.NGOID != ngoID {
		return nil, fmt.Errorf("%w: opportunity belongs to another ngo", types.ErrNotAuthorized)
	}

	return opp, nil
}

// UpdateOpportunity lets the owning NGO edit an opportunity. Capacity can
// never be reduced below the number of spots already filled.
func (e *Engine) UpdateOpportunity(ctx context.Context, ngoID, opportunityID string, spec *types.OpportunitySpec) (*types.Opportunity, error) {
	opp, err := e.ownedOpportunity(ctx, ngoID, opportunityID)
	if err != nil {
		return nil, err
	}

	if spec == nil {
		return nil, types.NewValidationError("opportunity", "is required")
	}

	verr := validateOpportunitySpec(spec)
	if spec.SpotsAvailable < opp.SpotsFilled {
		verr.Add("spots_available", fmt.Sprintf("cannot be lower than the %d spots already filled", opp.SpotsFilled))
	}
	if verr.HasErrors() {
		return nil, verr
	}

	applySpec(opp, spec)
	opp.UpdatedAt = e.now()

	updated, err := e.repos.Opportunities.UpdateOpportunity(ctx, opp)
	if err != nil {
		if errors.Is(err, types.ErrConstraintViolation) {
			return nil, types.NewValidationError("spots_available", "cannot be lower than the spots already filled")
		}
		return nil, fmt.Errorf("failed to update opportunity: %w", err)
	}

	return updated, nil
}

// CloseOpportunity stops new applications. Pending applications can still
// be decided.
func (e *Engine) CloseOpportunity(ctx context.Context, ngoID, opportunityID string) (*types.Opportunity, error) {
	return e.setOpportunityStatus(ctx, ngoID, opportunityID, types.OpportunityStatusClosed)
}

func (e *Engine) ReopenOpportunity(ctx context.Context, ngoID, opportunityID string) (*types.Opportunity, error) {
	return e.setOpportunityStatus(ctx, ngoID, opportunityID, types.OpportunityStatusActive)
}

func (e *Engine) setOpportunityStatus(ctx context.Context, ngoID, opportunityID string, status types.OpportunityStatus) (*types.Opportunity, error) {
	opp, err := e.ownedOpportunity(ctx, ngoID, opportunityID)
	if err != nil {
		return nil, err
	}

	if opp.Status == status {
		return opp, nil
	}

	updated, err := e.repos.Opportunities.SetOpportunityStatus(ctx, opportunityID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to set opportunity status: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"status":         status,
	}).Info("opportunity status changed")

	return updated, nil
}

// DeleteOpportunity removes an opportunity and, through the store, its
// applications. The owning NGO and admins may delete.
func (e *Engine) DeleteOpportunity(ctx context.Context, actorID, opportunityID string) error {
	opp, err := e.Opportunity(ctx, opportunityID)
	if err != nil {
		return err
	}

	actor, err := e.profile(ctx, actorID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: unknown actor", types.ErrNotAuthorized)
		}
		return err
	}

	if opp.NGOID != actorID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the owning ngo or an admin can delete an opportunity", types.ErrNotAuthorized)
	}

	if err := e.repos.Opportunities.DeleteOpportunity(ctx, opportunityID); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"actor_id":       actorID,
	}).Info("opportunity deleted")

	if actor.IsAdmin() && opp.NGOID != actorID {
		e.recordAdminAction(ctx, actorID, types.AdminActionDeleteOpportunity, opportunityID, opp.Title)
	}

	return nil
}

func (e *Engine) Opportunity(ctx context.Context, id string) (*types.Opportunity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("opportunity_id", "is required")
	}

	opp, err := e.repos.Opportunities.Opportunity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunity %s: %w", id, err)
	}

	return opp, nil
}

func (e *Engine) ListOpportunities(ctx context.Context, filter types.OpportunityFilter) ([]*types.Opportunity, error) {
	if filter.Limit == 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	opps, err := e.repos.Opportunities.Opportunities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	return opps, nil
}
