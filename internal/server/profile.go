package server

import (
	"errors"
	"net/http"

	"volunteerhub/pkg/types"
)

type meResponse struct {
	Profile    *types.Profile    `json:"profile"`
	NGODetails *types.NGODetails `json:"ngoDetails,omitempty"`
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	profile, err := s.engine.Profile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := meResponse{Profile: profile}

	if profile.IsNGO() {
		details, err := s.engine.NGODetails(r.Context(), userID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			s.writeError(w, r, err)
			return
		}
		resp.NGODetails = details
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePutMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var update types.ProfileUpdate
	if !s.decodeJSON(w, r, &update) {
		return
	}

	profile, err := s.engine.UpdateProfile(r.Context(), userID, &update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleGetImpact(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	stats, err := s.engine.ImpactStats(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}
