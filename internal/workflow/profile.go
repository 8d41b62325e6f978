package workflow

import (
	"context"
	"fmt"
	"strings"

	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// UpdateProfile applies a user's edit of their own contact fields. A
// registered NGO must keep a first name.
func (e *Engine) UpdateProfile(ctx context.Context, profileID string, update *types.ProfileUpdate) (*types.Profile, error) {
	profile, err := e.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if update.Empty() {
		return nil, types.NewValidationError("profile", "no fields to update")
	}

	verr := validateStruct(update)
	if update.FirstName != nil && strings.TrimSpace(*update.FirstName) == "" && profile.IsNGO() &&
		profile.ApprovalStatus != types.ApprovalStatusUnsubmitted {
		verr.Add("firstName", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	updated, err := e.repos.Profiles.UpdateProfile(ctx, profileID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id": profileID,
		"user_type":  profile.UserType,
	}).Info("profile updated")

	return updated, nil
}
