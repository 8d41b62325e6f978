package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"volunteerhub/internal/store/memory"
	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	SenderID   string
	ReceiverID string
	Content    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, senderID, receiverID, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{senderID, receiverID, content})
}

func (n *recordingNotifier) to(receiverID string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []sentNotification
	for _, s := range n.sent {
		if s.ReceiverID == receiverID {
			out = append(out, s)
		}
	}
	return out
}

type harness struct {
	engine   *Engine
	store    *memory.Store
	notifier *recordingNotifier
	ctx      context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()
	st := memory.New()
	notifier := &recordingNotifier{}

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	engine := New(logger, Repositories{
		Profiles:      st,
		Opportunities: st,
		Applications:  st,
		Messages:      st,
		Reviews:       st,
		AdminActions:  st,
	}, notifier, WithClock(now))

	return &harness{engine: engine, store: st, notifier: notifier, ctx: context.Background()}
}

func (h *harness) admin(t *testing.T, id string) *types.Profile {
	t.Helper()

	p := &types.Profile{ID: id, UserType: types.UserTypeAdmin}
	require.NoError(t, h.store.CreateProfile(h.ctx, p))
	return p
}

func (h *harness) volunteer(t *testing.T, id string) *types.Profile {
	t.Helper()

	p, err := h.engine.RegisterProfile(h.ctx, &types.Profile{ID: id, UserType: types.UserTypeVolunteer})
	require.NoError(t, err)
	return p
}

func (h *harness) ngo(t *testing.T, id string) *types.Profile {
	t.Helper()

	p, err := h.engine.RegisterProfile(h.ctx, &types.Profile{ID: id, UserType: types.UserTypeNGO})
	require.NoError(t, err)
	return p
}

// approvedNGO registers an NGO, submits its registration and approves it
// with a freshly created admin.
func (h *harness) approvedNGO(t *testing.T, id string) *types.Profile {
	t.Helper()

	h.ngo(t, id)
	_, err := h.engine.SubmitNGORegistration(h.ctx, id, validRegistration())
	require.NoError(t, err)

	adminID := "admin-for-" + id
	h.admin(t, adminID)
	p, err := h.engine.ReviewNGO(h.ctx, adminID, id, types.ReviewDecisionApprove, "")
	require.NoError(t, err)
	require.Equal(t, types.ApprovalStatusApproved, p.ApprovalStatus)
	return p
}

func (h *harness) opportunity(t *testing.T, ngoID string, spots int) *types.Opportunity {
	t.Helper()

	opp, err := h.engine.CreateOpportunity(h.ctx, ngoID, opportunitySpec(spots))
	require.NoError(t, err)
	return opp
}

func validRegistration() *types.NGORegistration {
	return &types.NGORegistration{
		Representative: types.NGORepresentative{
			FirstName:          "Asha",
			LastName:           "Rao",
			Phone:              "+91 98450 00000",
			RepresentativeRole: "Director",
			IDProofType:        "Aadhaar",
			IDProofURL:         "ngo-documents/ngo-1/id_proof/abc-aadhaar.pdf",
		},
		Details: types.NGODetails{
			OrganizationName:  "Green Earth Trust",
			RegisteredAddress: "12 MG Road",
			City:              "Bengaluru",
			State:             "Karnataka",
			NGOType:           types.NGOTypeTrust,
			SocialCauses:      []string{"environment", "education"},
			Mission:           "Restore urban lakes",
			OfficialEmail:     "contact@greenearth.org",
			NGODocuments: types.NGODocuments{
				RegistrationCertificateURL: utils.StringPtr("ngo-documents/ngo-1/registration_certificate/cert.pdf"),
			},
		},
	}
}

func opportunitySpec(spots int) *types.OpportunitySpec {
	return &types.OpportunitySpec{
		Title:          fmt.Sprintf("Lake cleanup (%d spots)", spots),
		Description:    "Weekend lake cleanup drive",
		RequiredSkills: []string{"teamwork"},
		SpotsAvailable: spots,
	}
}
