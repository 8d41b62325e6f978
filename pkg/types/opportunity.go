package types

import "time"

type OpportunityStatus string

const (
	OpportunityStatusActive OpportunityStatus = "active"
	OpportunityStatusClosed OpportunityStatus = "closed"
)

type Opportunity struct {
	ID                  string            `db:"id" json:"id"`
	NGOID               string            `db:"ngo_id" json:"ngoId"`
	Title               string            `db:"title" json:"title"`
	Description         string            `db:"description" json:"description"`
	Location            *string           `db:"location" json:"location,omitempty"`
	CauseArea           *string           `db:"cause_area" json:"causeArea,omitempty"`
	RequiredSkills      []string          `db:"required_skills" json:"requiredSkills"`
	CommitmentLevel     *string           `db:"commitment_level" json:"commitmentLevel,omitempty"`
	TimeCommitmentHours *int              `db:"time_commitment_hours" json:"timeCommitmentHours,omitempty"`
	StartDate           *time.Time        `db:"start_date" json:"startDate,omitempty"`
	EndDate             *time.Time        `db:"end_date" json:"endDate,omitempty"`
	SpotsAvailable      int               `db:"spots_available" json:"spots_available"`
	SpotsFilled         int               `db:"spots_filled" json:"spots_filled"`
	Status              OpportunityStatus `db:"status" json:"status"`
	CreatedAt           time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updatedAt"`
}

// SpotsRemaining is derived from the two counters and never stored.
func (o *Opportunity) SpotsRemaining() int {
	remaining := o.SpotsAvailable - o.SpotsFilled
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (o *Opportunity) IsFull() bool {
	return o.SpotsRemaining() == 0
}

func (o *Opportunity) IsActive() bool {
	return o.Status == OpportunityStatusActive
}

// OpportunitySpec is the NGO-supplied part of an opportunity, used for both
// create and update.
type OpportunitySpec struct {
	Title               string     `json:"title" validate:"required,max=200"`
	Description         string     `json:"description" validate:"required"`
	Location            *string    `json:"location"`
	CauseArea           *string    `json:"causeArea"`
	RequiredSkills      []string   `json:"requiredSkills" validate:"dive,required"`
	CommitmentLevel     *string    `json:"commitmentLevel"`
	TimeCommitmentHours *int       `json:"timeCommitmentHours" validate:"omitempty,min=0"`
	StartDate           *time.Time `json:"startDate"`
	EndDate             *time.Time `json:"endDate"`
	SpotsAvailable      int        `json:"spots_available"`
}

type OpportunityFilter struct {
	Status    OpportunityStatus
	CauseArea string
	NGOID     string
	Limit     uint64
}

// OpportunityView adds derived fields for API responses.
type OpportunityView struct {
	*Opportunity
	SpotsRemaining int  `json:"spots_remaining"`
	Full           bool `json:"full"`
}

func NewOpportunityView(o *Opportunity) *OpportunityView {
	return &OpportunityView{
		Opportunity:    o,
		SpotsRemaining: o.SpotsRemaining(),
		Full:           o.IsFull(),
	}
}
