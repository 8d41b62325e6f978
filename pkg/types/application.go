package types

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

type ApplicationDecision string

const (
	ApplicationDecisionAccept ApplicationDecision = "accept"
	ApplicationDecisionReject ApplicationDecision = "reject"
)

type Application struct {
	ID            string            `db:"id" json:"id"`
	OpportunityID string            `db:"opportunity_id" json:"opportunity_id"`
	VolunteerID   string            `db:"volunteer_id" json:"volunteer_id"`
	CoverLetter   *string           `db:"cover_letter" json:"coverLetter,omitempty"`
	IDDocumentURL *string           `db:"id_document_url" json:"idDocumentUrl,omitempty"`
	Status        ApplicationStatus `db:"status" json:"status"`
	DecidedBy     *string           `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt     *time.Time        `db:"decided_at" json:"decidedAt,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`
}

func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
