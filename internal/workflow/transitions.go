package workflow

import (
	"fmt"

	"volunteerhub/pkg/types"
)

type approvalEdge struct {
	from     types.ApprovalStatus
	decision types.ReviewDecision
}

// approvalTransitions is the NGO review state machine. approved and
// rejected have no outgoing edges; leaving them requires the explicit
// admin override.
var approvalTransitions = map[approvalEdge]types.ApprovalStatus{
	{types.ApprovalStatusPending, types.ReviewDecisionApprove}:       types.ApprovalStatusApproved,
	{types.ApprovalStatusPending, types.ReviewDecisionRequestInfo}:   types.ApprovalStatusNeedsInfo,
	{types.ApprovalStatusPending, types.ReviewDecisionReject}:        types.ApprovalStatusRejected,
	{types.ApprovalStatusNeedsInfo, types.ReviewDecisionApprove}:     types.ApprovalStatusApproved,
	{types.ApprovalStatusNeedsInfo, types.ReviewDecisionRequestInfo}: types.ApprovalStatusNeedsInfo,
	{types.ApprovalStatusNeedsInfo, types.ReviewDecisionReject}:      types.ApprovalStatusRejected,
}

// registrationSources are the statuses from which an NGO may (re)submit
// its registration details.
var registrationSources = []types.ApprovalStatus{
	types.ApprovalStatusUnsubmitted,
	types.ApprovalStatusPending,
	types.ApprovalStatusNeedsInfo,
}

func validReviewDecision(d types.ReviewDecision) bool {
	switch d {
	case types.ReviewDecisionApprove, types.ReviewDecisionRequestInfo, types.ReviewDecisionReject:
		return true
	}
	return false
}

func reviewNeedsReason(d types.ReviewDecision) bool {
	return d == types.ReviewDecisionRequestInfo || d == types.ReviewDecisionReject
}

func nextApprovalStatus(current types.ApprovalStatus, decision types.ReviewDecision) (types.ApprovalStatus, error) {
	next, ok := approvalTransitions[approvalEdge{current, decision}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s an ngo in status %q", types.ErrInvalidTransition, decision, current)
	}
	return next, nil
}

func canSubmitRegistration(current types.ApprovalStatus) bool {
	for _, s := range registrationSources {
		if s == current {
			return true
		}
	}
	return false
}

func validApplicationDecision(d types.ApplicationDecision) bool {
	return d == types.ApplicationDecisionAccept || d == types.ApplicationDecisionReject
}

// nextApplicationStatus covers the application state machine: only pending
// applications can be decided and both outcomes are terminal.
func nextApplicationStatus(current types.ApplicationStatus, decision types.ApplicationDecision) (types.ApplicationStatus, error) {
	if current != types.ApplicationStatusPending {
		return "", fmt.Errorf("%w: application is already %s", types.ErrInvalidTransition, current)
	}

	switch decision {
	case types.ApplicationDecisionAccept:
		return types.ApplicationStatusAccepted, nil
	case types.ApplicationDecisionReject:
		return types.ApplicationStatusRejected, nil
	}

	return "", types.NewValidationError("decision", "must be accept or reject")
}
