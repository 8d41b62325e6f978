// Package workflow holds every business rule of the volunteer matching
// service: NGO approval, opportunity capacity and application decisions.
// It keeps no state between calls; all state lives behind the store
// interfaces and every invariant that must hold under concurrency is
// enforced by an atomic store primitive.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type ProfileStore interface {
	Profile(ctx context.Context, id string) (*types.Profile, error)
	CreateProfile(ctx context.Context, profile *types.Profile) error
	UpdateProfile(ctx context.Context, id string, update *types.ProfileUpdate) (*types.Profile, error)
	Profiles(ctx context.Context, filter types.ProfileFilter) ([]*types.Profile, error)
	ProfilesByApprovalStatus(ctx context.Context, statuses ...types.ApprovalStatus) ([]*types.Profile, error)
	NGODetails(ctx context.Context, profileID string) (*types.NGODetails, error)

	// UpsertNGODetails writes the details row without touching the
	// profile's approval status.
	UpsertNGODetails(ctx context.Context, details *types.NGODetails) (*types.NGODetails, error)

	// SubmitNGORegistration stores the representative fields and upserts the
	// NGO details, moving the profile to pending. It must fail with
	// types.ErrInvalidTransition when the current status is not in from.
	SubmitNGORegistration(ctx context.Context, profileID string, from []types.ApprovalStatus, reg *types.NGORegistration) (*types.Profile, error)

	// TransitionApproval is a compare-and-set on approval_status. A nil from
	// matches any current status. It must fail with types.ErrInvalidTransition
	// when the current status is not in from.
	TransitionApproval(ctx context.Context, profileID string, from []types.ApprovalStatus, to types.ApprovalStatus, reason *string) (*types.Profile, error)
	SetVerified(ctx context.Context, profileID string, verified bool) (*types.Profile, error)
}

type OpportunityStore interface {
	CreateOpportunity(ctx context.Context, opp *types.Opportunity) error
	Opportunity(ctx context.Context, id string) (*types.Opportunity, error)
	Opportunities(ctx context.Context, filter types.OpportunityFilter) ([]*types.Opportunity, error)

	// UpdateOpportunity writes the NGO-editable fields. It must fail with
	// types.ErrConstraintViolation when spots_available would drop below
	// the current spots_filled.
	UpdateOpportunity(ctx context.Context, opp *types.Opportunity) (*types.Opportunity, error)
	SetOpportunityStatus(ctx context.Context, id string, status types.OpportunityStatus) (*types.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id string) error
}

type ApplicationStore interface {
	// CreateApplication must fail with types.ErrConstraintViolation when an
	// application for the same (opportunity_id, volunteer_id) exists.
	CreateApplication(ctx context.Context, app *types.Application) error
	Application(ctx context.Context, id string) (*types.Application, error)
	ApplicationFor(ctx context.Context, opportunityID, volunteerID string) (*types.Application, error)
	ApplicationsByOpportunity(ctx context.Context, opportunityID string) ([]*types.Application, error)
	ApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]*types.Application, error)
	HasAcceptedEngagement(ctx context.Context, ngoID, volunteerID string) (bool, error)
	AcceptedApplicationsForNGO(ctx context.Context, ngoID string) ([]*types.Application, error)

	// AcceptApplication atomically moves a pending application to accepted
	// and increments the parent spots_filled only while it stays within
	// spots_available. It fails with types.ErrInvalidTransition when the
	// application is no longer pending and types.ErrConstraintViolation
	// when the ceiling would be exceeded; neither change is applied then.
	AcceptApplication(ctx context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, *types.Opportunity, error)

	// RejectApplication fails with types.ErrInvalidTransition when the
	// application is no longer pending.
	RejectApplication(ctx context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *types.Message) error
	Conversation(ctx context.Context, userID, otherID string) ([]*types.Message, error)
	MarkConversationRead(ctx context.Context, receiverID, senderID string) error
	Inbox(ctx context.Context, userID string, limit uint64) ([]*types.Message, error)
}

type ReviewStore interface {
	CreateReview(ctx context.Context, review *types.Review) error
	ReviewsFor(ctx context.Context, reviewedID string) ([]*types.Review, error)
}

type AdminActionStore interface {
	RecordAdminAction(ctx context.Context, action *types.AdminAction) error
	AdminActions(ctx context.Context, limit uint64) ([]*types.AdminAction, error)
}

// Notifier delivers best-effort messages. Implementations must not block
// the caller for long and never report failure back to it.
type Notifier interface {
	Notify(ctx context.Context, senderID, receiverID, content string)
}

type Repositories struct {
	Profiles      ProfileStore
	Opportunities OpportunityStore
	Applications  ApplicationStore
	Messages      MessageStore
	Reviews       ReviewStore
	AdminActions  AdminActionStore
}

type Engine struct {
	logger   logrus.FieldLogger
	repos    Repositories
	notifier Notifier
	now      func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(logger logrus.FieldLogger, repos Repositories, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		logger:   logger,
		repos:    repos,
		notifier: notifier,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and folds the result into a
// types.ValidationError so callers can report per-field messages.
func validateStruct(input any) *types.ValidationError {
	verr := &types.ValidationError{}

	err := validate.Struct(input)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return verr
	}

	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), describeFieldError(fe))
	}

	return verr
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func (e *Engine) profile(ctx context.Context, id string) (*types.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("profile_id", "is required")
	}

	profile, err := e.repos.Profiles.Profile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}

	return profile, nil
}

func (e *Engine) requireAdmin(ctx context.Context, adminID string) (*types.Profile, error) {
	admin, err := e.profile(ctx, adminID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown actor", types.ErrNotAuthorized)
		}
		return nil, err
	}

	if !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", types.ErrNotAuthorized)
	}

	return admin, nil
}

// notify hands a message to the notifier. It runs only after the
// triggering state change is committed.
func (e *Engine) notify(ctx context.Context, senderID, receiverID, content string) {
	if e.notifier == nil || senderID == "" || receiverID == "" {
		return
	}

	e.notifier.Notify(context.WithoutCancel(ctx), senderID, receiverID, content)
}

// recordAdminAction writes the audit trail entry. Failures are logged only;
// the admin's change has already been committed.
func (e *Engine) recordAdminAction(ctx context.Context, adminID string, actionType types.AdminActionType, targetID, details string) {
	action := &types.AdminAction{
		ID:         utils.NanoID(),
		AdminID:    adminID,
		ActionType: actionType,
		TargetID:   targetID,
		Details:    utils.TrimmedStringPtr(details),
		CreatedAt:  e.now(),
	}

	if err := e.repos.AdminActions.RecordAdminAction(ctx, action); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"admin_id":    adminID,
			"action_type": actionType,
			"target_id":   targetID,
		}).Error("failed to record admin action")
	}
}

// AdminActions returns the most recent audit entries, newest first.
func (e *Engine) AdminActions(ctx context.Context, adminID string, limit uint64) ([]*types.AdminAction, error) {
	if _, err := e.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if limit == 0 || limit > 200 {
		limit = 50
	}

	actions, err := e.repos.AdminActions.AdminActions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}

	return actions, nil
}
