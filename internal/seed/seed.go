// Package seed loads a small, fixed data set for local development. Every
// step is idempotent so the seed can be rerun against the same database.
package seed

import (
	"context"
	"errors"
	"fmt"

	"volunteerhub/internal/utils"
	"volunteerhub/internal/workflow"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

type ProfileCreator interface {
	CreateProfile(ctx context.Context, profile *types.Profile) error
}

type seedProfile struct {
	ID        string
	UserType  types.UserType
	Email     string
	FirstName string
	LastName  string
}

const adminID = "00000000-0000-0000-0000-000000000001"

var profiles = []seedProfile{
	{ID: adminID, UserType: types.UserTypeAdmin, Email: "admin+seed@example.org", FirstName: "Site", LastName: "Admin"},
	{ID: "11111111-1111-1111-1111-111111111111", UserType: types.UserTypeNGO, Email: "asha.rao+seed1@example.org", FirstName: "Asha", LastName: "Rao"},
	{ID: "22222222-2222-2222-2222-222222222222", UserType: types.UserTypeNGO, Email: "vikram.shah+seed2@example.org", FirstName: "Vikram", LastName: "Shah"},
	{ID: "33333333-3333-3333-3333-333333333333", UserType: types.UserTypeVolunteer, Email: "priya.nair+seed3@example.org", FirstName: "Priya", LastName: "Nair"},
	{ID: "44444444-4444-4444-4444-444444444444", UserType: types.UserTypeVolunteer, Email: "rahul.mehta+seed4@example.org", FirstName: "Rahul", LastName: "Mehta"},
	{ID: "55555555-5555-5555-5555-555555555555", UserType: types.UserTypeVolunteer, Email: "meera.iyer+seed5@example.org", FirstName: "Meera", LastName: "Iyer"},
}

// ngos maps seeded NGO profiles to their registration. The first one is
// approved, the second is left pending so the admin queue is not empty.
var ngos = []struct {
	ProfileID string
	Approve   bool
	Details   types.NGODetails
}{
	{
		ProfileID: "11111111-1111-1111-1111-111111111111",
		Approve:   true,
		Details: types.NGODetails{
			OrganizationName:  "Green Earth Trust",
			RegisteredAddress: "12 MG Road",
			City:              "Bengaluru",
			State:             "Karnataka",
			NGOType:           types.NGOTypeTrust,
			SocialCauses:      []string{"environment", "water"},
			Mission:           "Restore and protect the city's lakes",
			OfficialEmail:     "contact@greenearth.example.org",
		},
	},
	{
		ProfileID: "22222222-2222-2222-2222-222222222222",
		Details: types.NGODetails{
			OrganizationName:  "Read Together Society",
			RegisteredAddress: "4 Park Street",
			City:              "Kolkata",
			State:             "West Bengal",
			NGOType:           types.NGOTypeSociety,
			SocialCauses:      []string{"education"},
			Mission:           "Evening reading classes for first-generation learners",
			OfficialEmail:     "hello@readtogether.example.org",
		},
	},
}

var opportunities = []types.OpportunitySpec{
	{
		Title:           "Lake cleanup drive",
		Description:     "Clear plastic and debris from the lake shore on Saturday mornings",
		Location:        utils.StringPtr("Bellandur Lake, Bengaluru"),
		CauseArea:       utils.StringPtr("environment"),
		RequiredSkills:  []string{"teamwork"},
		CommitmentLevel: utils.StringPtr("weekly"),
		SpotsAvailable:  10,
	},
	{
		Title:               "Water quality survey",
		Description:         "Collect samples and log readings with our field team",
		CauseArea:           utils.StringPtr("water"),
		RequiredSkills:      []string{"data entry", "attention to detail"},
		CommitmentLevel:     utils.StringPtr("one-time"),
		TimeCommitmentHours: utils.IntPtr(6),
		SpotsAvailable:      3,
	},
}

// Run seeds profiles, NGO registrations and the approved NGO's
// opportunities. Existing rows are left alone.
func Run(ctx context.Context, logger logrus.FieldLogger, engine *workflow.Engine, creator ProfileCreator) error {
	created := 0
	for _, sp := range profiles {
		ok, err := ensureProfile(ctx, engine, creator, sp)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	logger.WithField("created", created).Info("profiles seeded")

	approvedNGO := ""
	for _, n := range ngos {
		status, err := ensureRegistration(ctx, engine, n.ProfileID, n.Details, n.Approve)
		if err != nil {
			return err
		}
		if status == types.ApprovalStatusApproved && approvedNGO == "" {
			approvedNGO = n.ProfileID
		}
	}
	logger.Info("ngo registrations seeded")

	if approvedNGO == "" {
		return nil
	}

	existing, err := engine.ListOpportunities(ctx, types.OpportunityFilter{NGOID: approvedNGO, Status: types.OpportunityStatusActive})
	if err != nil {
		return fmt.Errorf("failed to list seeded opportunities: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, o := range existing {
		titles[o.Title] = true
	}

	for _, spec := range opportunities {
		if titles[spec.Title] {
			continue
		}
		spec.RequiredSkills = append([]string(nil), spec.RequiredSkills...)
		if _, err := engine.CreateOpportunity(ctx, approvedNGO, &spec); err != nil {
			return fmt.Errorf("failed to seed opportunity %q: %w", spec.Title, err)
		}
	}
	logger.Info("opportunities seeded")

	return nil
}

func ensureProfile(ctx context.Context, engine *workflow.Engine, creator ProfileCreator, sp seedProfile) (bool, error) {
	_, err := engine.Profile(ctx, sp.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return false, fmt.Errorf("failed to fetch seed profile %s: %w", sp.ID, err)
	}

	profile := &types.Profile{
		ID:        sp.ID,
		UserType:  sp.UserType,
		Email:     utils.StringPtr(sp.Email),
		FirstName: utils.StringPtr(sp.FirstName),
		LastName:  utils.StringPtr(sp.LastName),
	}

	// admins cannot self-register, so they go straight to the store
	if sp.UserType == types.UserTypeAdmin {
		if err := creator.CreateProfile(ctx, profile); err != nil {
			return false, fmt.Errorf("failed to create seed admin %s: %w", sp.ID, err)
		}
		return true, nil
	}

	if _, err := engine.RegisterProfile(ctx, profile); err != nil {
		return false, fmt.Errorf("failed to create seed profile %s: %w", sp.ID, err)
	}
	return true, nil
}

func ensureRegistration(ctx context.Context, engine *workflow.Engine, profileID string, details types.NGODetails, approve bool) (types.ApprovalStatus, error) {
	profile, err := engine.Profile(ctx, profileID)
	if err != nil {
		return "", err
	}

	if profile.ApprovalStatus == types.ApprovalStatusUnsubmitted {
		details.SocialCauses = append([]string(nil), details.SocialCauses...)
		reg := &types.NGORegistration{
			Representative: types.NGORepresentative{
				FirstName:          utils.PtrString(profile.FirstName),
				LastName:           utils.PtrString(profile.LastName),
				Phone:              "+91 80000 00000",
				RepresentativeRole: "Director",
				IDProofType:        "Aadhaar",
				IDProofURL:         fmt.Sprintf("ngo-documents/%s/id_proof/seed-id-proof.pdf", profileID),
			},
			Details: details,
		}
		reg.Details.SetDocument(types.NGODocRegistrationCertificate, fmt.Sprintf("ngo-documents/%s/registration_certificate/seed-certificate.pdf", profileID))

		profile, err = engine.SubmitNGORegistration(ctx, profileID, reg)
		if err != nil {
			return "", fmt.Errorf("failed to submit seed registration for %s: %w", profileID, err)
		}
	}

	if approve && profile.ApprovalStatus == types.ApprovalStatusPending {
		profile, err = engine.ReviewNGO(ctx, adminID, profileID, types.ReviewDecisionApprove, "")
		if err != nil {
			return "", fmt.Errorf("failed to approve seed ngo %s: %w", profileID, err)
		}
	}

	return profile.ApprovalStatus, nil
}
