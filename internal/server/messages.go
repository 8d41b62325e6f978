package server

import (
	"net/http"
)

type messageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type reviewRequest struct {
	ReviewedID string `json:"reviewedId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	msg, err := s.engine.SendMessage(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Service) handleInbox(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	msgs, err := s.engine.Inbox(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, msgs)
}

func (s *Service) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	msgs, err := s.engine.Conversation(r.Context(), userID, pathParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, msgs)
}

func (s *Service) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	review, err := s.engine.SubmitReview(r.Context(), userID, req.ReviewedID, req.Rating, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, review)
}

func (s *Service) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.engine.ReviewsFor(r.Context(), pathParam(r, "profileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, reviews)
}
