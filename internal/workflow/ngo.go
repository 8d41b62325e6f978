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

// RegisterProfile creates the profile row for a freshly signed-up identity.
// Admin accounts cannot be self-registered.
func (e *Engine) RegisterProfile(ctx context.Context, profile *types.Profile) (*types.Profile, error) {
	verr := &types.ValidationError{}
	if strings.TrimSpace(profile.ID) == "" {
		verr.Add("id", "is required")
	}
	if profile.UserType != types.UserTypeVolunteer && profile.UserType != types.UserTypeNGO {
		verr.Add("user_type", "must be volunteer or ngo")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	profile.ApprovalStatus = types.ApprovalStatusUnsubmitted
	profile.ApprovalReason = nil
	profile.Verified = false

	err := e.repos.Profiles.CreateProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, types.ErrConstraintViolation) {
			return nil, types.NewValidationError("id", "profile already exists")
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id": profile.ID,
		"user_type":  profile.UserType,
	}).Info("profile registered")

	return profile, nil
}

// Profile returns the profile for id.
func (e *Engine) Profile(ctx context.Context, id string) (*types.Profile, error) {
	return e.profile(ctx, id)
}

// NGODetails returns the registration details an NGO last submitted.
func (e *Engine) NGODetails(ctx context.Context, profileID string) (*types.NGODetails, error) {
	if _, err := e.profile(ctx, profileID); err != nil {
		return nil, err
	}

	details, err := e.repos.Profiles.NGODetails(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ngo details: %w", err)
	}

	return details, nil
}

// SubmitNGORegistration records the NGO's details and documents and puts the
// profile into pending review. It never approves anything by itself.
func (e *Engine) SubmitNGORegistration(ctx context.Context, profileID string, reg *types.NGORegistration) (*types.Profile, error) {
	profile, err := e.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if !profile.IsNGO() {
		return nil, fmt.Errorf("%w: only ngo accounts can submit an ngo registration", types.ErrNotAuthorized)
	}

	if reg == nil {
		return nil, types.NewValidationError("registration", "is required")
	}

	normalizeRegistration(reg)

	verr := validateStruct(reg)
	if verr.HasErrors() {
		return nil, verr
	}

	if !canSubmitRegistration(profile.ApprovalStatus) {
		return nil, fmt.Errorf("%w: registration cannot be resubmitted from status %q", types.ErrInvalidTransition, profile.ApprovalStatus)
	}

	reg.Details.ProfileID = profileID

	updated, err := e.repos.Profiles.SubmitNGORegistration(ctx, profileID, []types.ApprovalStatus{profile.ApprovalStatus}, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to submit ngo registration: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id":  profileID,
		"prev_status": profile.ApprovalStatus,
	}).Info("ngo registration submitted")

	return updated, nil
}

func normalizeRegistration(reg *types.NGORegistration) {
	rep := &reg.Representative
	rep.FirstName = strings.TrimSpace(rep.FirstName)
	rep.LastName = strings.TrimSpace(rep.LastName)
	rep.Phone = strings.TrimSpace(rep.Phone)
	rep.RepresentativeRole = strings.TrimSpace(rep.RepresentativeRole)
	rep.IDProofType = strings.TrimSpace(rep.IDProofType)
	rep.IDProofURL = strings.TrimSpace(rep.IDProofURL)

	normalizeDetails(&reg.Details)
}

func normalizeDetails(d *types.NGODetails) {
	d.OrganizationName = strings.TrimSpace(d.OrganizationName)
	d.RegisteredAddress = strings.TrimSpace(d.RegisteredAddress)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.NGOType = strings.TrimSpace(d.NGOType)
	d.Mission = strings.TrimSpace(d.Mission)
	d.OfficialEmail = strings.TrimSpace(d.OfficialEmail)
	d.RegistrationCertificateURL = utils.TrimmedStringPtr(utils.PtrString(d.RegistrationCertificateURL))

	causes := make([]string, 0, len(d.SocialCauses))
	for _, c := range d.SocialCauses {
		if c = strings.TrimSpace(c); c != "" {
			causes = append(causes, c)
		}
	}
	d.SocialCauses = causes
}

// UpdateNGODetails lets a registered NGO edit its details at any approval
// status. Documents left nil keep their stored reference and the approval
// status is not changed.
func (e *Engine) UpdateNGODetails(ctx context.Context, ngoID string, details *types.NGODetails) (*types.NGODetails, error) {
	profile, err := e.profile(ctx, ngoID)
	if err != nil {
		return nil, err
	}

	if !profile.IsNGO() {
		return nil, fmt.Errorf("%w: only ngo accounts have ngo details", types.ErrNotAuthorized)
	}

	if details == nil {
		return nil, types.NewValidationError("details", "is required")
	}

	if profile.ApprovalStatus == types.ApprovalStatusUnsubmitted {
		return nil, fmt.Errorf("%w: submit a registration before editing details", types.ErrInvalidTransition)
	}

	existing, err := e.repos.Profiles.NGODetails(ctx, ngoID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("failed to load ngo details: %w", err)
	}
	if existing != nil {
		keepDocuments(&details.NGODocuments, existing.NGODocuments)
	}

	normalizeDetails(details)

	verr := validateStruct(details)
	if verr.HasErrors() {
		return nil, verr
	}

	details.ProfileID = ngoID

	saved, err := e.repos.Profiles.UpsertNGODetails(ctx, details)
	if err != nil {
		return nil, fmt.Errorf("failed to update ngo details: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id": ngoID,
		"status":     profile.ApprovalStatus,
	}).Info("ngo details updated")

	return saved, nil
}

// keepDocuments fills every nil reference in docs from current.
func keepDocuments(docs *types.NGODocuments, current types.NGODocuments) {
	for _, pair := range []struct{ dst, src **string }{
		{&docs.RegistrationCertificateURL, &current.RegistrationCertificateURL},
		{&docs.PANDocumentURL, &current.PANDocumentURL},
		{&docs.Certificate12AURL, &current.Certificate12AURL},
		{&docs.Certificate80GURL, &current.Certificate80GURL},
		{&docs.FCRACertificateURL, &current.FCRACertificateURL},
		{&docs.GSTCertificateURL, &current.GSTCertificateURL},
		{&docs.BankAccountProofURL, &current.BankAccountProofURL},
	} {
		if *pair.dst == nil {
			*pair.dst = *pair.src
		}
	}
}

// ReviewNGO applies an admin review decision to a pending or needs_info NGO.
func (e *Engine) ReviewNGO(ctx context.Context, reviewerID, profileID string, decision types.ReviewDecision, reason string) (*types.Profile, error) {
	reason = strings.TrimSpace(reason)

	if !validReviewDecision(decision) {
		return nil, types.NewValidationError("decision", "must be approve, requestInfo or reject")
	}

	if reviewNeedsReason(decision) && reason == "" {
		return nil, types.NewValidationError("reason", fmt.Sprintf("is required to %s", decision))
	}

	if _, err := e.requireAdmin(ctx, reviewerID); err != nil {
		return nil, err
	}

	profile, err := e.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if !profile.IsNGO() {
		return nil, types.NewValidationError("profile_id", "is not an ngo account")
	}

	next, err := nextApprovalStatus(profile.ApprovalStatus, decision)
	if err != nil {
		return nil, err
	}

	updated, err := e.repos.Profiles.TransitionApproval(ctx, profileID, []types.ApprovalStatus{profile.ApprovalStatus}, next, utils.TrimmedStringPtr(reason))
	if err != nil {
		return nil, fmt.Errorf("failed to apply ngo review: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id":  profileID,
		"reviewer_id": reviewerID,
		"from":        profile.ApprovalStatus,
		"to":          next,
	}).Info("ngo reviewed")

	e.recordAdminAction(ctx, reviewerID, types.AdminActionReviewNGO, profileID, approvalDetails(next, reason))
	e.notify(ctx, reviewerID, profileID, approvalMessage(next, reason))

	return updated, nil
}

// OverrideNGOApproval is the explicit admin path out of the terminal review
// states. It can set any approval status and is always audited.
func (e *Engine) OverrideNGOApproval(ctx context.Context, adminID, profileID string, status types.ApprovalStatus, reason string) (*types.Profile, error) {
	reason = strings.TrimSpace(reason)

	if !status.Valid() {
		return nil, types.NewValidationError("approval_status", "must be pending, approved, needs_info or rejected")
	}

	if reason == "" {
		return nil, types.NewValidationError("reason", "is required for an override")
	}

	if _, err := e.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	profile, err := e.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if !profile.IsNGO() {
		return nil, types.NewValidationError("profile_id", "is not an ngo account")
	}

	updated, err := e.repos.Profiles.TransitionApproval(ctx, profileID, nil, status, utils.TrimmedStringPtr(reason))
	if err != nil {
		return nil, fmt.Errorf("failed to override ngo approval: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id": profileID,
		"admin_id":   adminID,
		"from":       profile.ApprovalStatus,
		"to":         status,
	}).Warn("ngo approval overridden")

	e.recordAdminAction(ctx, adminID, types.AdminActionOverrideApproval, profileID,
		fmt.Sprintf("%s -> %s: %s", profile.ApprovalStatus, status, reason))
	e.notify(ctx, adminID, profileID, approvalMessage(status, reason))

	return updated, nil
}

// SetVerified toggles the display-only verified badge. Authorization
// decisions never read it; approval_status is the single authority.
func (e *Engine) SetVerified(ctx context.Context, adminID, profileID string, verified bool) (*types.Profile, error) {
	if _, err := e.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if _, err := e.profile(ctx, profileID); err != nil {
		return nil, err
	}

	updated, err := e.repos.Profiles.SetVerified(ctx, profileID, verified)
	if err != nil {
		return nil, fmt.Errorf("failed to set verified flag: %w", err)
	}

	e.recordAdminAction(ctx, adminID, types.AdminActionSetVerified, profileID, fmt.Sprintf("verified=%t", verified))

	return updated, nil
}

// NGOSubmission pairs an NGO profile with its registration details.
type NGOSubmission struct {
	Profile *types.Profile    `json:"profile"`
	Details *types.NGODetails `json:"details,omitempty"`
}

// PendingNGOs lists NGOs awaiting review (pending or needs_info).
func (e *Engine) PendingNGOs(ctx context.Context, adminID string) ([]*NGOSubmission, error) {
	if _, err := e.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	profiles, err := e.repos.Profiles.ProfilesByApprovalStatus(ctx, types.ApprovalStatusPending, types.ApprovalStatusNeedsInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending ngos: %w", err)
	}

	out := make([]*NGOSubmission, 0, len(profiles))
	for _, p := range profiles {
		details, err := e.repos.Profiles.NGODetails(ctx, p.ID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("failed to load ngo details for %s: %w", p.ID, err)
		}
		out = append(out, &NGOSubmission{Profile: p, Details: details})
	}

	return out, nil
}

func approvalDetails(status types.ApprovalStatus, reason string) string {
	if reason == "" {
		return string(status)
	}
	return fmt.Sprintf("%s: %s", status, reason)
}

func approvalMessage(status types.ApprovalStatus, reason string) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	if reason == "" {
		return fmt.Sprintf("Your NGO registration is %s", label)
	}
	return fmt.Sprintf("Your NGO registration is %s: %s", label, reason)
}
