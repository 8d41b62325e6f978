package workflow

import (
	"context"
	"errors"
	"fmt"

	"volunteerhub/pkg/types"
)

// ImpactStats summarises a volunteer's engagements. Hours and completed
// projects count accepted applications whose opportunity has closed or
// ended; accepted ones still running are reported as active.
type ImpactStats struct {
	VolunteerID          string `json:"volunteerId"`
	ProjectsCompleted    int    `json:"projectsCompleted"`
	HoursContributed     int    `json:"hoursContributed"`
	ActiveEngagements    int    `json:"activeEngagements"`
	NGOsSupported        int    `json:"ngosSupported"`
	PendingApplications  int    `json:"pendingApplications"`
	RejectedApplications int    `json:"rejectedApplications"`
}

// ImpactStats derives the volunteer's impact from their applications.
func (e *Engine) ImpactStats(ctx context.Context, volunteerID string) (*ImpactStats, error) {
	volunteer, err := e.profile(ctx, volunteerID)
	if err != nil {
		return nil, err
	}

	if !volunteer.IsVolunteer() {
		return nil, fmt.Errorf("%w: impact stats are kept for volunteers only", types.ErrNotAuthorized)
	}

	apps, err := e.repos.Applications.ApplicationsByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	now := e.now()
	stats := &ImpactStats{VolunteerID: volunteerID}
	ngos := make(map[string]struct{})

	for _, app := range apps {
		switch app.Status {
		case types.ApplicationStatusPending:
			stats.PendingApplications++
			continue
		case types.ApplicationStatusRejected:
			stats.RejectedApplications++
			continue
		}

		opp, err := e.repos.Opportunities.Opportunity(ctx, app.OpportunityID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load opportunity %s: %w", app.OpportunityID, err)
		}

		ngos[opp.NGOID] = struct{}{}

		ended := opp.EndDate != nil && opp.EndDate.Before(now)
		if opp.IsActive() && !ended {
			stats.ActiveEngagements++
			continue
		}

		stats.ProjectsCompleted++
		if opp.TimeCommitmentHours != nil {
			stats.HoursContributed += *opp.TimeCommitmentHours
		}
	}

	stats.NGOsSupported = len(ngos)

	return stats, nil
}
