package workflow

import (
	"testing"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactStats(t *testing.T) {
	h := newHarness(t)
	h.approvedNGO(t, "ngo-1")
	h.approvedNGO(t, "ngo-2")
	h.volunteer(t, "vol-1")

	past := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	ended := opportunitySpec(2)
	ended.TimeCommitmentHours = utils.IntPtr(6)
	ended.EndDate = &past
	endedOpp, err := h.engine.CreateOpportunity(h.ctx, "ngo-1", ended)
	require.NoError(t, err)

	closed := opportunitySpec(2)
	closed.TimeCommitmentHours = utils.IntPtr(4)
	closedOpp, err := h.engine.CreateOpportunity(h.ctx, "ngo-2", closed)
	require.NoError(t, err)

	running := h.opportunity(t, "ngo-1", 2)
	pending := h.opportunity(t, "ngo-2", 2)
	rejected := h.opportunity(t, "ngo-2", 2)

	accept := func(oppID, ngoID string) {
		app, err := h.engine.SubmitApplication(h.ctx, oppID, "vol-1", "", "")
		require.NoError(t, err)
		_, err = h.engine.DecideApplication(h.ctx, app.ID, types.ApplicationDecisionAccept, ngoID)
		require.NoError(t, err)
	}
	accept(endedOpp.ID, "ngo-1")
	accept(closedOpp.ID, "ngo-2")
	accept(running.ID, "ngo-1")

	_, err = h.engine.CloseOpportunity(h.ctx, "ngo-2", closedOpp.ID)
	require.NoError(t, err)

	_, err = h.engine.SubmitApplication(h.ctx, pending.ID, "vol-1", "", "")
	require.NoError(t, err)

	app, err := h.engine.SubmitApplication(h.ctx, rejected.ID, "vol-1", "", "")
	require.NoError(t, err)
	_, err = h.engine.DecideApplication(h.ctx, app.ID, types.ApplicationDecisionReject, "ngo-2")
	require.NoError(t, err)

	stats, err := h.engine.ImpactStats(h.ctx, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, &ImpactStats{
		VolunteerID:          "vol-1",
		ProjectsCompleted:    2,
		HoursContributed:     10,
		ActiveEngagements:    1,
		NGOsSupported:        2,
		PendingApplications:  1,
		RejectedApplications: 1,
	}, stats)
}

func TestImpactStats_VolunteersOnly(t *testing.T) {
	h := newHarness(t)
	h.approvedNGO(t, "ngo-1")
	h.volunteer(t, "vol-1")

	stats, err := h.engine.ImpactStats(h.ctx, "vol-1")
	require.NoError(t, err)
	assert.Zero(t, stats.ProjectsCompleted)

	_, err = h.engine.ImpactStats(h.ctx, "ngo-1")
	assert.ErrorIs(t, err, types.ErrNotAuthorized)

	_, err = h.engine.ImpactStats(h.ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
