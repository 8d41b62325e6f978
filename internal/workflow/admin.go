package workflow

import (
	"context"
	"fmt"

	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// RoleStore changes a profile's user type.
type RoleStore interface {
	SetUserType(ctx context.Context, id string, userType types.UserType) error
}

// GrantAdmin promotes an existing profile to admin. There is no HTTP route
// for it; operators run it from the command line.
func (e *Engine) GrantAdmin(ctx context.Context, roles RoleStore, profileID string) (*types.Profile, error) {
	profile, err := e.profile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if profile.IsAdmin() {
		return profile, nil
	}

	if err := roles.SetUserType(ctx, profileID, types.UserTypeAdmin); err != nil {
		return nil, fmt.Errorf("failed to grant admin: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"profile_id": profileID,
		"prev_type":  profile.UserType,
	}).Warn("admin role granted")

	e.recordAdminAction(ctx, profileID, types.AdminActionGrantAdmin, profileID, fmt.Sprintf("from %s", profile.UserType))

	return e.profile(ctx, profileID)
}

// ListProfiles is the admin user directory, newest accounts first.
func (e *Engine) ListProfiles(ctx context.Context, adminID string, filter types.ProfileFilter) ([]*types.Profile, error) {
	if _, err := e.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if filter.UserType != "" && !filter.UserType.Valid() {
		return nil, types.NewValidationError("user_type", "must be volunteer, ngo or admin")
	}

	if filter.Limit == 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	profiles, err := e.repos.Profiles.Profiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	return profiles, nil
}
