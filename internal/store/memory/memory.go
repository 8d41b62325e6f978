// Package memory is a process-local implementation of every workflow store.
// A single mutex serialises all operations, which gives the same
// check-then-insert and increment-with-ceiling atomicity that the Postgres
// constraints provide. It backs `serve --in-memory` and the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"volunteerhub/pkg/types"
)

type Store struct {
	mu sync.Mutex

	profiles      map[string]types.Profile
	ngoDetails    map[string]types.NGODetails
	opportunities map[string]types.Opportunity
	applications  map[string]types.Application
	appByPair     map[pairKey]string
	messages      []types.Message
	reviews       []types.Review
	adminActions  []types.AdminAction

	now func() time.Time
}

type pairKey struct {
	opportunityID string
	volunteerID   string
}

func New() *Store {
	return &Store{
		profiles:      make(map[string]types.Profile),
		ngoDetails:    make(map[string]types.NGODetails),
		opportunities: make(map[string]types.Opportunity),
		applications:  make(map[string]types.Application),
		appByPair:     make(map[pairKey]string),
		now:           time.Now,
	}
}

func statusIn(s types.ApprovalStatus, from []types.ApprovalStatus) bool {
	if from == nil {
		return true
	}
	for _, f := range from {
		if f == s {
			return true
		}
	}
	return false
}

// Profiles

func (s *Store) Profile(_ context.Context, id string) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	return &p, nil
}

func (s *Store) CreateProfile(_ context.Context, profile *types.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; ok {
		return fmt.Errorf("%w: profile %s exists", types.ErrConstraintViolation, profile.ID)
	}

	now := s.now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[profile.ID] = *profile
	return nil
}

// SetUserType changes a profile's role. It is used to grant admin access.
func (s *Store) SetUserType(_ context.Context, id string, userType types.UserType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return types.ErrProfileNotFound
	}
	p.UserType = userType
	p.UpdatedAt = s.now()
	s.profiles[id] = p
	return nil
}

func (s *Store) ProfilesByApprovalStatus(_ context.Context, statuses ...types.ApprovalStatus) ([]*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Profile, 0)
	for _, p := range s.profiles {
		if p.UserType == types.UserTypeNGO && statusIn(p.ApprovalStatus, statuses) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) NGODetails(_ context.Context, profileID string) (*types.NGODetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.ngoDetails[profileID]
	if !ok {
		return nil, types.ErrNGODetailsNotFound
	}
	return &d, nil
}

func (s *Store) SubmitNGORegistration(_ context.Context, profileID string, from []types.ApprovalStatus, reg *types.NGORegistration) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	if p.UserType != types.UserTypeNGO || !statusIn(p.ApprovalStatus, from) {
		return nil, fmt.Errorf("%w: ngo %s is %q", types.ErrInvalidTransition, profileID, p.ApprovalStatus)
	}

	now := s.now()
	rep := reg.Representative
	p.FirstName = &rep.FirstName
	p.LastName = &rep.LastName
	p.Phone = &rep.Phone
	p.RepresentativeRole = &rep.RepresentativeRole
	p.IDProofType = &rep.IDProofType
	p.IDProofURL = &rep.IDProofURL
	p.ApprovalStatus = types.ApprovalStatusPending
	p.ApprovalReason = nil
	p.UpdatedAt = now
	s.profiles[profileID] = p

	details := reg.Details
	details.ProfileID = profileID
	details.SocialCauses = append([]string(nil), reg.Details.SocialCauses...)
	if existing, ok := s.ngoDetails[profileID]; ok {
		details.CreatedAt = existing.CreatedAt
	} else {
		details.CreatedAt = now
	}
	details.UpdatedAt = now
	s.ngoDetails[profileID] = details

	return &p, nil
}

func (s *Store) UpsertNGODetails(_ context.Context, details *types.NGODetails) (*types.NGODetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[details.ProfileID]; !ok {
		return nil, fmt.Errorf("%w: unknown profile %s", types.ErrConstraintViolation, details.ProfileID)
	}

	now := s.now()
	saved := *details
	saved.SocialCauses = append([]string(nil), details.SocialCauses...)
	if existing, ok := s.ngoDetails[details.ProfileID]; ok {
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	s.ngoDetails[details.ProfileID] = saved

	return &saved, nil
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) UpdateProfile(_ context.Context, id string, update *types.ProfileUpdate) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	if update.FirstName != nil {
		p.FirstName = trimmedOrNil(*update.FirstName)
	}
	if update.LastName != nil {
		p.LastName = trimmedOrNil(*update.LastName)
	}
	if update.Phone != nil {
		p.Phone = trimmedOrNil(*update.Phone)
	}
	p.UpdatedAt = s.now()
	s.profiles[id] = p
	return &p, nil
}

func (s *Store) Profiles(_ context.Context, filter types.ProfileFilter) ([]*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Profile, 0)
	for _, p := range s.profiles {
		if filter.UserType != "" && p.UserType != filter.UserType {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) TransitionApproval(_ context.Context, profileID string, from []types.ApprovalStatus, to types.ApprovalStatus, reason *string) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	if p.UserType != types.UserTypeNGO || !statusIn(p.ApprovalStatus, from) {
		return nil, fmt.Errorf("%w: ngo %s is %q", types.ErrInvalidTransition, profileID, p.ApprovalStatus)
	}

	p.ApprovalStatus = to
	p.ApprovalReason = reason
	p.UpdatedAt = s.now()
	s.profiles[profileID] = p
	return &p, nil
}

func (s *Store) SetVerified(_ context.Context, profileID string, verified bool) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	p.Verified = verified
	p.UpdatedAt = s.now()
	s.profiles[profileID] = p
	return &p, nil
}

// Opportunities

func cloneOpportunity(o types.Opportunity) *types.Opportunity {
	o.RequiredSkills = append([]string(nil), o.RequiredSkills...)
	return &o
}

func (s *Store) CreateOpportunity(_ context.Context, opp *types.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opp.SpotsAvailable < 1 || opp.SpotsFilled < 0 || opp.SpotsFilled > opp.SpotsAvailable {
		return fmt.Errorf("%w: spots out of range", types.ErrConstraintViolation)
	}
	if _, ok := s.opportunities[opp.ID]; ok {
		return fmt.Errorf("%w: opportunity %s exists", types.ErrConstraintViolation, opp.ID)
	}

	s.opportunities[opp.ID] = *cloneOpportunity(*opp)
	return nil
}

func (s *Store) Opportunity(_ context.Context, id string) (*types.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.opportunities[id]
	if !ok {
		return nil, types.ErrOpportunityNotFound
	}
	return cloneOpportunity(o), nil
}

func (s *Store) Opportunities(_ context.Context, filter types.OpportunityFilter) ([]*types.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Opportunity, 0)
	for _, o := range s.opportunities {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.NGOID != "" && o.NGOID != filter.NGOID {
			continue
		}
		if filter.CauseArea != "" && (o.CauseArea == nil || *o.CauseArea != filter.CauseArea) {
			continue
		}
		out = append(out, cloneOpportunity(o))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateOpportunity(_ context.Context, opp *types.Opportunity) (*types.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.opportunities[opp.ID]
	if !ok {
		return nil, types.ErrOpportunityNotFound
	}
	if opp.SpotsAvailable < 1 || opp.SpotsAvailable < current.SpotsFilled {
		return nil, fmt.Errorf("%w: spots_available below spots_filled", types.ErrConstraintViolation)
	}

	updated := *cloneOpportunity(*opp)
	updated.NGOID = current.NGOID
	updated.SpotsFilled = current.SpotsFilled
	updated.Status = current.Status
	updated.CreatedAt = current.CreatedAt
	s.opportunities[opp.ID] = updated
	return cloneOpportunity(updated), nil
}

func (s *Store) SetOpportunityStatus(_ context.Context, id string, status types.OpportunityStatus) (*types.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.opportunities[id]
	if !ok {
		return nil, types.ErrOpportunityNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.opportunities[id] = o
	return cloneOpportunity(o), nil
}

func (s *Store) DeleteOpportunity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.opportunities[id]; !ok {
		return types.ErrOpportunityNotFound
	}
	delete(s.opportunities, id)

	for appID, app := range s.applications {
		if app.OpportunityID == id {
			delete(s.applications, appID)
			delete(s.appByPair, pairKey{app.OpportunityID, app.VolunteerID})
		}
	}
	return nil
}

// Applications

func (s *Store) CreateApplication(_ context.Context, app *types.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.opportunities[app.OpportunityID]; !ok {
		return fmt.Errorf("%w: unknown opportunity %s", types.ErrConstraintViolation, app.OpportunityID)
	}

	key := pairKey{app.OpportunityID, app.VolunteerID}
	if _, ok := s.appByPair[key]; ok {
		return fmt.Errorf("%w: application for %s/%s exists", types.ErrConstraintViolation, app.OpportunityID, app.VolunteerID)
	}

	s.applications[app.ID] = *app
	s.appByPair[key] = app.ID
	return nil
}

func (s *Store) Application(_ context.Context, id string) (*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	return &a, nil
}

func (s *Store) ApplicationFor(_ context.Context, opportunityID, volunteerID string) (*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.appByPair[pairKey{opportunityID, volunteerID}]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	a := s.applications[id]
	return &a, nil
}

func (s *Store) applicationsWhere(match func(types.Application) bool) []*types.Application {
	out := make([]*types.Application, 0)
	for _, a := range s.applications {
		if match(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) ApplicationsByOpportunity(_ context.Context, opportunityID string) ([]*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applicationsWhere(func(a types.Application) bool { return a.OpportunityID == opportunityID }), nil
}

func (s *Store) ApplicationsByVolunteer(_ context.Context, volunteerID string) ([]*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applicationsWhere(func(a types.Application) bool { return a.VolunteerID == volunteerID }), nil
}

func (s *Store) HasAcceptedEngagement(_ context.Context, ngoID, volunteerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.applications {
		if a.VolunteerID != volunteerID || a.Status != types.ApplicationStatusAccepted {
			continue
		}
		if o, ok := s.opportunities[a.OpportunityID]; ok && o.NGOID == ngoID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AcceptedApplicationsForNGO(_ context.Context, ngoID string) ([]*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.applicationsWhere(func(a types.Application) bool {
		if a.Status != types.ApplicationStatusAccepted {
			return false
		}
		o, ok := s.opportunities[a.OpportunityID]
		return ok && o.NGOID == ngoID
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DecidedAt != nil && out[j].DecidedAt != nil && out[i].DecidedAt.Before(*out[j].DecidedAt)
	})
	return out, nil
}

func (s *Store) AcceptApplication(_ context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, *types.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[applicationID]
	if !ok {
		return nil, nil, types.ErrApplicationNotFound
	}
	if a.Status != types.ApplicationStatusPending {
		return nil, nil, fmt.Errorf("%w: application is %s", types.ErrInvalidTransition, a.Status)
	}

	o, ok := s.opportunities[a.OpportunityID]
	if !ok {
		return nil, nil, types.ErrOpportunityNotFound
	}
	if o.SpotsFilled+1 > o.SpotsAvailable {
		return nil, nil, fmt.Errorf("%w: spots_filled would exceed spots_available", types.ErrConstraintViolation)
	}

	o.SpotsFilled++
	o.UpdatedAt = decidedAt
	s.opportunities[o.ID] = o

	a.Status = types.ApplicationStatusAccepted
	a.DecidedBy = &deciderID
	a.DecidedAt = &decidedAt
	a.UpdatedAt = decidedAt
	s.applications[a.ID] = a

	return &a, cloneOpportunity(o), nil
}

func (s *Store) RejectApplication(_ context.Context, applicationID, deciderID string, decidedAt time.Time) (*types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[applicationID]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	if a.Status != types.ApplicationStatusPending {
		return nil, fmt.Errorf("%w: application is %s", types.ErrInvalidTransition, a.Status)
	}

	a.Status = types.ApplicationStatusRejected
	a.DecidedBy = &deciderID
	a.DecidedAt = &decidedAt
	a.UpdatedAt = decidedAt
	s.applications[a.ID] = a

	return &a, nil
}

// Messages

func (s *Store) CreateMessage(_ context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Store) Conversation(_ context.Context, userID, otherID string) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Message, 0)
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == otherID) || (m.SenderID == otherID && m.ReceiverID == userID) {
			m := m
			out = append(out, &m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkConversationRead(_ context.Context, receiverID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ReceiverID == receiverID && s.messages[i].SenderID == senderID {
			s.messages[i].IsRead = true
		}
	}
	return nil
}

func (s *Store) Inbox(_ context.Context, userID string, limit uint64) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Message, 0)
	for _, m := range s.messages {
		if m.ReceiverID == userID || m.SenderID == userID {
			m := m
			out = append(out, &m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reviews

func (s *Store) CreateReview(_ context.Context, review *types.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if review.Rating < 1 || review.Rating > 5 {
		return fmt.Errorf("%w: rating out of range", types.ErrConstraintViolation)
	}
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *Store) ReviewsFor(_ context.Context, reviewedID string) ([]*types.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Review, 0)
	for i := len(s.reviews) - 1; i >= 0; i-- {
		if r := s.reviews[i]; r.ReviewedID == reviewedID {
			out = append(out, &r)
		}
	}
	return out, nil
}

// Admin actions

func (s *Store) RecordAdminAction(_ context.Context, action *types.AdminAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adminActions = append(s.adminActions, *action)
	return nil
}

func (s *Store) AdminActions(_ context.Context, limit uint64) ([]*types.AdminAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.AdminAction, 0)
	for i := len(s.adminActions) - 1; i >= 0; i-- {
		a := s.adminActions[i]
		out = append(out, &a)
		if limit > 0 && uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}
