package server

import (
	"net/http"
	"strings"

	"volunteerhub/internal/storage"
	"volunteerhub/pkg/types"
)

const idDocumentField = "id_document"

type applicationRequest struct {
	CoverLetter string `json:"coverLetter"`
}

type decisionRequest struct {
	Decision types.ApplicationDecision `json:"decision"`
}

// handleSubmitApplication accepts JSON, or a multipart form with
// cover_letter and an optional id_document file.
func (s *Service) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var (
		coverLetter string
		idDocKey    string
	)

	if isMultipart(r) {
		if !s.parseUploadForm(w, r) {
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		coverLetter = strings.TrimSpace(r.FormValue("cover_letter"))

		key, uploaded, err := s.uploadFormFile(ctx, r, storage.PrefixVolunteer, userID, idDocumentField)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if uploaded {
			idDocKey = key
		}
	} else {
		var req applicationRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		coverLetter = req.CoverLetter
	}

	app, err := s.engine.SubmitApplication(ctx, pathParam(r, "id"), userID, coverLetter, idDocKey)
	if err != nil {
		if idDocKey != "" {
			s.discardUploads(ctx, []string{idDocKey})
		}
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, app)
}

func (s *Service) handleListOpportunityApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	apps, err := s.engine.ApplicationsForOpportunity(r.Context(), userID, pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Service) handleListMyApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	apps, err := s.engine.ApplicationsForVolunteer(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Service) handleNGOVolunteers(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	roster, err := s.engine.AcceptedVolunteers(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, roster)
}

func (s *Service) handleDecideApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	app, err := s.engine.DecideApplication(r.Context(), pathParam(r, "id"), req.Decision, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, app)
}
