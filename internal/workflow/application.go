package workflow

import (
	"context"
	"errors"
	"fmt"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// SubmitApplication files a volunteer's application. The checks run in a
// fixed order and the first failure wins: the opportunity must exist and be
// active, it must have a spot remaining, and the volunteer must not have
// applied already. The unique (opportunity_id, volunteer_id) constraint in
// the store is the final guard against concurrent duplicates.
func (e *Engine) SubmitApplication(ctx context.Context, opportunityID, volunteerID, coverLetter, idDocumentRef string) (*types.Application, error) {
	volunteer, err := e.profile(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown volunteer", types.ErrNotAuthorized)
		}
		return nil, err
	}

	if !volunteer.IsVolunteer() {
		return nil, fmt.Errorf("%w: only volunteers can apply to opportunities", types.ErrNotAuthorized)
	}

	opp, err := e.Opportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}

	if !opp.IsActive() {
		return nil, types.ErrOpportunityClosed
	}

	if opp.IsFull() {
		return nil, types.ErrCapacityExceeded
	}

	existing, err := e.repos.Applications.ApplicationFor(ctx, opportunityID, volunteerID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for an existing application: %w", err)
	}
	if existing != nil {
		return nil, types.ErrDuplicateApplication
	}

	now := e.now()
	app := &types.Application{
		ID:            utils.NanoID(),
		OpportunityID: opportunityID,
		VolunteerID:   volunteerID,
		CoverLetter:   utils.TrimmedStringPtr(coverLetter),
		IDDocumentURL: utils.TrimmedStringPtr(idDocumentRef),
		Status:        types.ApplicationStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.repos.Applications.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, types.ErrConstraintViolation) {
			return nil, e.explainApplicationConflict(ctx, opportunityID, volunteerID, err)
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"opportunity_id": opportunityID,
		"volunteer_id":   volunteerID,
	}).Info("application submitted")

	e.notify(ctx, volunteerID, opp.NGOID, fmt.Sprintf("New application received for %s", opp.Title))

	return app, nil
}

// explainApplicationConflict resolves a constraint violation on insert. The
// store reports both the unique pair and the opportunity foreign key that
// way, so the current rows decide which one fired.
func (e *Engine) explainApplicationConflict(ctx context.Context, opportunityID, volunteerID string, cause error) error {
	existing, err := e.repos.Applications.ApplicationFor(ctx, opportunityID, volunteerID)
	if err == nil && existing != nil {
		return types.ErrDuplicateApplication
	}
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("failed to check for an existing application: %w", err)
	}

	if _, err := e.Opportunity(ctx, opportunityID); err != nil {
		return err
	}

	return fmt.Errorf("failed to create application: %w", cause)
}

// DecideApplication lets the NGO that owns the opportunity accept or reject
// a pending application. Accepting consumes one spot through the store's
// increment-with-ceiling; when no spot is left the application stays
// pending.
func (e *Engine) DecideApplication(ctx context.Context, applicationID string, decision types.ApplicationDecision, deciderID string) (*types.Application, error) {
	if !validApplicationDecision(decision) {
		return nil, types.NewValidationError("decision", "must be accept or reject")
	}

	app, err := e.repos.Applications.Application(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application %s: %w", applicationID, err)
	}

	opp, err := e.Opportunity(ctx, app.OpportunityID)
	if err != nil {
		return nil, err
	}

	if opp.NGOID != deciderID {
		return nil, fmt.Errorf("%w: only the owning ngo can decide applications", types.ErrNotAuthorized)
	}

	next, err := nextApplicationStatus(app.Status, decision)
	if err != nil {
		return nil, err
	}

	now := e.now()

	var decided *types.Application
	switch next {
	case types.ApplicationStatusAccepted:
		if opp.IsFull() {
			return nil, types.ErrCapacityExceeded
		}

		decided, opp, err = e.repos.Applications.AcceptApplication(ctx, applicationID, deciderID, now)
		if err != nil {
			if errors.Is(err, types.ErrConstraintViolation) {
				return nil, types.ErrCapacityExceeded
			}
			return nil, fmt.Errorf("failed to accept application: %w", err)
		}
	case types.ApplicationStatusRejected:
		decided, err = e.repos.Applications.RejectApplication(ctx, applicationID, deciderID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to reject application: %w", err)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"application_id": applicationID,
		"opportunity_id": opp.ID,
		"status":         decided.Status,
		"spots_filled":   opp.SpotsFilled,
	}).Info("application decided")

	e.notify(ctx, deciderID, app.VolunteerID, fmt.Sprintf("Your application for %s was %s", opp.Title, decided.Status))

	return decided, nil
}

// ApplicationsForOpportunity lists applications to an opportunity for its
// owning NGO.
func (e *Engine) ApplicationsForOpportunity(ctx context.Context, ngoID, opportunityID string) ([]*types.Application, error) {
	if _, err := e.ownedOpportunity(ctx, ngoID, opportunityID); err != nil {
		return nil, err
	}

	apps, err := e.repos.Applications.ApplicationsByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

func (e *Engine) ApplicationsForVolunteer(ctx context.Context, volunteerID string) ([]*types.Application, error) {
	apps, err := e.repos.Applications.ApplicationsByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

// VolunteerEngagement is one volunteer on an NGO's roster with the
// applications the NGO accepted from them.
type VolunteerEngagement struct {
	Volunteer    *types.Profile       `json:"volunteer"`
	Applications []*types.Application `json:"applications"`
}

// AcceptedVolunteers is the NGO's roster: every volunteer holding an
// accepted application to one of its opportunities, in order of first
// acceptance.
func (e *Engine) AcceptedVolunteers(ctx context.Context, ngoID string) ([]*VolunteerEngagement, error) {
	ngo, err := e.profile(ctx, ngoID)
	if err != nil {
		return nil, err
	}

	if !ngo.IsNGO() {
		return nil, fmt.Errorf("%w: only ngo accounts have a volunteer roster", types.ErrNotAuthorized)
	}

	apps, err := e.repos.Applications.AcceptedApplicationsForNGO(ctx, ngoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted applications: %w", err)
	}

	roster := make([]*VolunteerEngagement, 0)
	byVolunteer := make(map[string]*VolunteerEngagement)
	for _, app := range apps {
		entry, ok := byVolunteer[app.VolunteerID]
		if !ok {
			volunteer, err := e.profile(ctx, app.VolunteerID)
			if err != nil {
				return nil, err
			}
			entry = &VolunteerEngagement{Volunteer: volunteer}
			byVolunteer[app.VolunteerID] = entry
			roster = append(roster, entry)
		}
		entry.Applications = append(entry.Applications, app)
	}

	return roster, nil
}
