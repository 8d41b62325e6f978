package types

import "time"

type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	ReceiverID string    `db:"receiver_id" json:"receiverId"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"isRead"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Review is append-only feedback from one party about another.
type Review struct {
	ID         string    `db:"id" json:"id"`
	ReviewerID string    `db:"reviewer_id" json:"reviewerId"`
	ReviewedID string    `db:"reviewed_id" json:"reviewedId"`
	Rating     int       `db:"rating" json:"rating" validate:"min=1,max=5"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type AdminActionType string

const (
	AdminActionReviewNGO         AdminActionType = "review_ngo"
	AdminActionOverrideApproval  AdminActionType = "override_approval"
	AdminActionSetVerified       AdminActionType = "set_verified"
	AdminActionDeleteOpportunity AdminActionType = "delete_opportunity"
	AdminActionGrantAdmin        AdminActionType = "grant_admin"
)

type AdminAction struct {
	ID         string          `db:"id" json:"id"`
	AdminID    string          `db:"admin_id" json:"adminId"`
	ActionType AdminActionType `db:"action_type" json:"actionType"`
	TargetID   string          `db:"target_id" json:"targetId"`
	Details    *string         `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}
