package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"
)

const maxMessageLength = 4000

// SendMessage stores a direct message between two profiles.
func (e *Engine) SendMessage(ctx context.Context, senderID, receiverID, content string) (*types.Message, error) {
	content = strings.TrimSpace(content)

	verr := &types.ValidationError{}
	if content == "" {
		verr.Add("content", "is required")
	} else if utf8.RuneCountInString(content) > maxMessageLength {
		verr.Add("content", fmt.Sprintf("must be at most %d characters", maxMessageLength))
	}
	if senderID == receiverID {
		verr.Add("receiverId", "cannot message yourself")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if _, err := e.profile(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:         utils.NanoID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  e.now(),
	}

	if err := e.repos.Messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return msg, nil
}

// Conversation returns the messages exchanged between userID and otherID,
// oldest first, and marks the ones userID received as read.
func (e *Engine) Conversation(ctx context.Context, userID, otherID string) ([]*types.Message, error) {
	if _, err := e.profile(ctx, otherID); err != nil {
		return nil, err
	}

	msgs, err := e.repos.Messages.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if err := e.repos.Messages.MarkConversationRead(ctx, userID, otherID); err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("failed to mark conversation read")
	}

	return msgs, nil
}

func (e *Engine) Inbox(ctx context.Context, userID string, limit uint64) ([]*types.Message, error) {
	if limit == 0 || limit > 200 {
		limit = 100
	}

	msgs, err := e.repos.Messages.Inbox(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}

	return msgs, nil
}

// SubmitReview appends feedback from one side of a completed engagement
// about the other. The pair must be an NGO and a volunteer whose
// application to one of the NGO's opportunities was accepted.
func (e *Engine) SubmitReview(ctx context.Context, reviewerID, reviewedID string, rating int, comment string) (*types.Review, error) {
	review := &types.Review{
		ID:         utils.NanoID(),
		ReviewerID: reviewerID,
		ReviewedID: reviewedID,
		Rating:     rating,
		Comment:    utils.TrimmedStringPtr(comment),
		CreatedAt:  e.now(),
	}

	verr := validateStruct(review)
	if reviewerID == reviewedID {
		verr.Add("reviewedId", "cannot review yourself")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	reviewer, err := e.profile(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown reviewer", types.ErrNotAuthorized)
		}
		return nil, err
	}

	reviewed, err := e.profile(ctx, reviewedID)
	if err != nil {
		return nil, err
	}

	var ngoID, volunteerID string
	switch {
	case reviewer.IsNGO() && reviewed.IsVolunteer():
		ngoID, volunteerID = reviewer.ID, reviewed.ID
	case reviewer.IsVolunteer() && reviewed.IsNGO():
		ngoID, volunteerID = reviewed.ID, reviewer.ID
	default:
		return nil, fmt.Errorf("%w: reviews are exchanged between an ngo and a volunteer", types.ErrNotAuthorized)
	}

	engaged, err := e.repos.Applications.HasAcceptedEngagement(ctx, ngoID, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check engagement: %w", err)
	}
	if !engaged {
		return nil, fmt.Errorf("%w: no accepted engagement between these profiles", types.ErrNotAuthorized)
	}

	if err := e.repos.Reviews.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return review, nil
}

func (e *Engine) ReviewsFor(ctx context.Context, profileID string) ([]*types.Review, error) {
	if _, err := e.profile(ctx, profileID); err != nil {
		return nil, err
	}

	reviews, err := e.repos.Reviews.ReviewsFor(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return reviews, nil
}
