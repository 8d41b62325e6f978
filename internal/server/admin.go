package server

import (
	"net/http"
	"strings"

	"volunteerhub/pkg/types"
)

type ngoReviewRequest struct {
	Decision types.ReviewDecision `json:"decision"`
	Reason   string               `json:"reason"`
}

type ngoOverrideRequest struct {
	Status types.ApprovalStatus `json:"status"`
	Reason string               `json:"reason"`
}

type verifiedRequest struct {
	Verified bool `json:"verified"`
}

func (s *Service) handleAdminPendingNGOs(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	pending, err := s.engine.PendingNGOs(r.Context(), adminID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pending)
}

func (s *Service) handleAdminReviewNGO(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req ngoReviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.engine.ReviewNGO(r.Context(), adminID, pathParam(r, "id"), req.Decision, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleAdminOverrideNGO(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req ngoOverrideRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.engine.OverrideNGOApproval(r.Context(), adminID, pathParam(r, "id"), req.Status, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleAdminSetVerified(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req verifiedRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.engine.SetVerified(r.Context(), adminID, pathParam(r, "id"), req.Verified)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleAdminActions(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	actions, err := s.engine.AdminActions(r.Context(), adminID, queryLimit(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, actions)
}

func (s *Service) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	filter := types.ProfileFilter{
		UserType: types.UserType(strings.TrimSpace(r.URL.Query().Get("user_type"))),
		Limit:    queryLimit(r),
	}

	profiles, err := s.engine.ListProfiles(r.Context(), adminID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profiles)
}
