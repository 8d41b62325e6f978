package server

import (
	"context"
	"errors"
	"net/http"

	"volunteerhub/internal/storage"
	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxUploadBytes = 10 << 20
	multipartMemoryBytes  = 8 << 20
)

// parseUploadForm parses a multipart or url-encoded body within the
// configured upload limit.
func (s *Service) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	limit := s.config.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(multipartMemoryBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorStatus(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit", nil)
			return false
		}
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid form payload", nil)
		return false
	}

	return true
}

// uploadFormFile stores the file sent under field, if any.
func (s *Service) uploadFormFile(ctx context.Context, r *http.Request, prefix, ownerID, field string) (string, bool, error) {
	if r.MultipartForm == nil {
		return "", false, nil
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", false, nil
		}
		return "", false, fieldError(field, "could not be read")
	}
	defer file.Close()

	key, err := s.documents.Upload(ctx, storage.Upload{
		Prefix:      prefix,
		OwnerID:     ownerID,
		Kind:        field,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return "", false, err
	}

	return key, true, nil
}

// discardUploads removes documents whose submission was rejected.
func (s *Service) discardUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.documents.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.WithError(err).WithField("storage_key", key).Error("failed to delete orphaned upload")
		}
	}
}

type ngoRegistrationResponse struct {
	Profile *types.Profile    `json:"profile"`
	Details *types.NGODetails `json:"details"`
}

// handlePostNGORegistration accepts the registration form plus document
// files named after types.NGODocumentKinds. Documents not re-sent on a
// resubmission keep their previous reference.
func (s *Service) handlePostNGORegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	profile, err := s.engine.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !profile.IsNGO() {
		s.writeError(w, r, types.ErrNotAuthorized)
		return
	}

	if !s.parseUploadForm(w, r) {
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	reg := &types.NGORegistration{}
	if err := decoder.Decode(&reg.Representative, r.Form); err != nil {
		s.logger.WithError(err).Info("failed to decode representative form")
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid form payload", nil)
		return
	}
	if err := decoder.Decode(&reg.Details, r.Form); err != nil {
		s.logger.WithError(err).Info("failed to decode ngo details form")
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid form payload", nil)
		return
	}

	existing, err := s.engine.NGODetails(ctx, userID)
	switch {
	case err == nil:
		reg.Details.NGODocuments = existing.NGODocuments
	case !errors.Is(err, types.ErrNotFound):
		s.writeError(w, r, err)
		return
	}
	reg.Representative.IDProofURL = utils.PtrString(profile.IDProofURL)

	var uploaded []string
	for _, kind := range types.NGODocumentKinds {
		key, ok, err := s.uploadFormFile(ctx, r, storage.PrefixNGO, userID, kind)
		if err != nil {
			s.discardUploads(ctx, uploaded)
			s.logger.WithError(err).WithFields(logrus.Fields{
				"profile_id": userID,
				"kind":       kind,
			}).Error("failed to store ngo document")
			s.writeError(w, r, err)
			return
		}
		if !ok {
			continue
		}

		uploaded = append(uploaded, key)
		if kind == types.NGODocIDProof {
			reg.Representative.IDProofURL = key
		} else {
			reg.Details.SetDocument(kind, key)
		}
	}

	updated, err := s.engine.SubmitNGORegistration(ctx, userID, reg)
	if err != nil {
		s.discardUploads(ctx, uploaded)
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ngoRegistrationResponse{Profile: updated, Details: &reg.Details})
}

// handlePutNGODetails lets a registered NGO edit its details without going
// back through review. Documents not sent keep their stored reference; the
// id proof belongs to the registration and is not accepted here.
func (s *Service) handlePutNGODetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	profile, err := s.engine.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !profile.IsNGO() {
		s.writeError(w, r, types.ErrNotAuthorized)
		return
	}

	if !s.parseUploadForm(w, r) {
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	details := &types.NGODetails{}
	if err := decoder.Decode(details, r.Form); err != nil {
		s.logger.WithError(err).Info("failed to decode ngo details form")
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid form payload", nil)
		return
	}

	var uploaded []string
	for _, kind := range types.NGODocumentKinds {
		if kind == types.NGODocIDProof {
			continue
		}

		key, ok, err := s.uploadFormFile(ctx, r, storage.PrefixNGO, userID, kind)
		if err != nil {
			s.discardUploads(ctx, uploaded)
			s.writeError(w, r, err)
			return
		}
		if ok {
			uploaded = append(uploaded, key)
			details.SetDocument(kind, key)
		}
	}

	saved, err := s.engine.UpdateNGODetails(ctx, userID, details)
	if err != nil {
		s.discardUploads(ctx, uploaded)
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, saved)
}
