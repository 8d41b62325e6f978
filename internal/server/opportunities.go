package server

import (
	"net/http"
	"strings"

	"volunteerhub/pkg/types"
)

func opportunityViews(opps []*types.Opportunity) []*types.OpportunityView {
	views := make([]*types.OpportunityView, 0, len(opps))
	for _, o := range opps {
		views = append(views, types.NewOpportunityView(o))
	}
	return views
}

// handleListOpportunities lists active opportunities unless ?status= asks
// for another state.
func (s *Service) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := types.OpportunityFilter{
		Status:    types.OpportunityStatusActive,
		CauseArea: strings.TrimSpace(q.Get("cause_area")),
		NGOID:     strings.TrimSpace(q.Get("ngo_id")),
		Limit:     queryLimit(r),
	}

	switch status := types.OpportunityStatus(strings.TrimSpace(q.Get("status"))); status {
	case "":
	case types.OpportunityStatusActive, types.OpportunityStatusClosed:
		filter.Status = status
	default:
		s.writeError(w, r, types.NewValidationError("status", "must be active or closed"))
		return
	}

	opps, err := s.engine.ListOpportunities(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, opportunityViews(opps))
}

func (s *Service) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := s.engine.Opportunity(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.NewOpportunityView(opp))
}

func (s *Service) handleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var spec types.OpportunitySpec
	if !s.decodeJSON(w, r, &spec) {
		return
	}

	opp, err := s.engine.CreateOpportunity(r.Context(), userID, &spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, types.NewOpportunityView(opp))
}

func (s *Service) handleUpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var spec types.OpportunitySpec
	if !s.decodeJSON(w, r, &spec) {
		return
	}

	opp, err := s.engine.UpdateOpportunity(r.Context(), userID, pathParam(r, "id"), &spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.NewOpportunityView(opp))
}

func (s *Service) handleCloseOpportunity(w http.ResponseWriter, r *http.Request) {
	s.changeOpportunityStatus(w, r, types.OpportunityStatusClosed)
}

func (s *Service) handleReopenOpportunity(w http.ResponseWriter, r *http.Request) {
	s.changeOpportunityStatus(w, r, types.OpportunityStatusActive)
}

func (s *Service) changeOpportunityStatus(w http.ResponseWriter, r *http.Request, status types.OpportunityStatus) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var (
		opp *types.Opportunity
		err error
	)
	if status == types.OpportunityStatusClosed {
		opp, err = s.engine.CloseOpportunity(r.Context(), userID, pathParam(r, "id"))
	} else {
		opp, err = s.engine.ReopenOpportunity(r.Context(), userID, pathParam(r, "id"))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.NewOpportunityView(opp))
}

func (s *Service) handleDeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	if err := s.engine.DeleteOpportunity(r.Context(), userID, pathParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
