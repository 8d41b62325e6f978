package seed

import (
	"context"
	"testing"

	"volunteerhub/internal/store/memory"
	"volunteerhub/internal/workflow"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(st *memory.Store) *workflow.Engine {
	logger, _ := test.NewNullLogger()
	return workflow.New(logger, workflow.Repositories{
		Profiles:      st,
		Opportunities: st,
		Applications:  st,
		Messages:      st,
		Reviews:       st,
		AdminActions:  st,
	}, nil)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	st := memory.New()
	engine := newEngine(st)

	require.NoError(t, Run(ctx, logger, engine, st))
	require.NoError(t, Run(ctx, logger, engine, st))

	admin, err := engine.Profile(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	approved, err := engine.Profile(ctx, ngos[0].ProfileID)
	require.NoError(t, err)
	assert.Equal(t, types.ApprovalStatusApproved, approved.ApprovalStatus)

	pending, err := engine.PendingNGOs(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ngos[1].ProfileID, pending[0].Profile.ID)

	opps, err := engine.ListOpportunities(ctx, types.OpportunityFilter{NGOID: ngos[0].ProfileID, Status: types.OpportunityStatusActive})
	require.NoError(t, err)
	assert.Len(t, opps, len(opportunities))

	actions, err := engine.AdminActions(ctx, adminID, 0)
	require.NoError(t, err)
	assert.Len(t, actions, 1, "the approval is only recorded once")
}
