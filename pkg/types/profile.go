package types

import "time"

type UserType string

const (
	UserTypeVolunteer UserType = "volunteer"
	UserTypeNGO       UserType = "ngo"
	UserTypeAdmin     UserType = "admin"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeVolunteer, UserTypeNGO, UserTypeAdmin:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	// ApprovalStatusUnsubmitted is the state of an NGO profile that has
	// signed up but not yet submitted registration details.
	ApprovalStatusUnsubmitted ApprovalStatus = ""
	ApprovalStatusPending     ApprovalStatus = "pending"
	ApprovalStatusApproved    ApprovalStatus = "approved"
	ApprovalStatusNeedsInfo   ApprovalStatus = "needs_info"
	ApprovalStatusRejected    ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusNeedsInfo, ApprovalStatusRejected:
		return true
	}
	return false
}

type ReviewDecision string

const (
	ReviewDecisionApprove     ReviewDecision = "approve"
	ReviewDecisionRequestInfo ReviewDecision = "requestInfo"
	ReviewDecisionReject      ReviewDecision = "reject"
)

type Profile struct {
	ID                 string         `db:"id" json:"id"`
	UserType           UserType       `db:"user_type" json:"userType"`
	Email              *string        `db:"email" json:"email,omitempty"`
	FirstName          *string        `db:"first_name" json:"firstName,omitempty"`
	LastName           *string        `db:"last_name" json:"lastName,omitempty"`
	Phone              *string        `db:"phone" json:"phone,omitempty"`
	RepresentativeRole *string        `db:"representative_role" json:"representativeRole,omitempty"`
	IDProofURL         *string        `db:"id_proof_url" json:"idProofUrl,omitempty"`
	IDProofType        *string        `db:"id_proof_type" json:"idProofType,omitempty"`
	ApprovalStatus     ApprovalStatus `db:"approval_status" json:"approval_status,omitempty"`
	ApprovalReason     *string        `db:"approval_reason" json:"approvalReason,omitempty"`
	Verified           bool           `db:"verified" json:"verified"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.UserType == UserTypeAdmin
}

func (p *Profile) IsNGO() bool {
	return p != nil && p.UserType == UserTypeNGO
}

func (p *Profile) IsVolunteer() bool {
	return p != nil && p.UserType == UserTypeVolunteer
}

// ProfileUpdate is a self-edit of the contact fields on a profile. Nil
// fields are left as they are; blank ones are cleared.
type ProfileUpdate struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

func (u *ProfileUpdate) Empty() bool {
	return u == nil || (u.FirstName == nil && u.LastName == nil && u.Phone == nil)
}

type ProfileFilter struct {
	UserType UserType
	Limit    uint64
}

// NGO legal entity types accepted at registration.
const (
	NGOTypeTrust    = "Trust"
	NGOTypeSociety  = "Society"
	NGOTypeSection8 = "Section 8 Company"
	NGOTypeOther    = "Other"
)

// NGODetails is the 1:1 extension of an NGO profile.
type NGODetails struct {
	ProfileID         string    `db:"profile_id" json:"profileId"`
	OrganizationName  string    `db:"organization_name" json:"organizationName" form:"organization_name" validate:"required"`
	RegisteredAddress string    `db:"registered_address" json:"registeredAddress" form:"registered_address" validate:"required"`
	City              string    `db:"city" json:"city" form:"city" validate:"required"`
	State             string    `db:"state" json:"state" form:"state" validate:"required"`
	NGOType           string    `db:"ngo_type" json:"ngoType" form:"ngo_type" validate:"required,oneof=Trust Society 'Section 8 Company' Other"`
	SocialCauses      []string  `db:"social_causes" json:"socialCauses" form:"social_causes" validate:"required,min=1,dive,required"`
	Mission           string    `db:"mission" json:"mission" form:"mission" validate:"required"`
	Website           *string   `db:"website" json:"website,omitempty" form:"website" validate:"omitempty,url"`
	FoundedYear       *int      `db:"founded_year" json:"foundedYear,omitempty" form:"founded_year" validate:"omitempty,min=1800,max=2100"`
	OfficialEmail     string    `db:"official_email" json:"officialEmail" form:"official_email" validate:"required,email"`
	PANNumber         *string   `db:"pan_number" json:"panNumber,omitempty" form:"pan_number"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`

	NGODocuments
}

// NGODocuments holds opaque references to uploaded registration documents.
type NGODocuments struct {
	RegistrationCertificateURL *string `db:"registration_certificate_url" json:"registrationCertificateUrl,omitempty" validate:"required"`
	PANDocumentURL             *string `db:"pan_document_url" json:"panDocumentUrl,omitempty"`
	Certificate12AURL          *string `db:"certificate_12a_url" json:"certificate12aUrl,omitempty"`
	Certificate80GURL          *string `db:"certificate_80g_url" json:"certificate80gUrl,omitempty"`
	FCRACertificateURL         *string `db:"fcra_certificate_url" json:"fcraCertificateUrl,omitempty"`
	GSTCertificateURL          *string `db:"gst_certificate_url" json:"gstCertificateUrl,omitempty"`
	BankAccountProofURL        *string `db:"bank_account_proof_url" json:"bankAccountProofUrl,omitempty"`
}

// NGORepresentative is the person submitting an NGO registration. Their
// identity proof is stored on the profile itself.
type NGORepresentative struct {
	FirstName          string `json:"firstName" form:"first_name" validate:"required"`
	LastName           string `json:"lastName" form:"last_name"`
	Phone              string `json:"phone" form:"phone" validate:"required"`
	RepresentativeRole string `json:"representativeRole" form:"representative_role" validate:"required"`
	IDProofType        string `json:"idProofType" form:"id_proof_type" validate:"required"`
	IDProofURL         string `json:"idProofUrl" form:"-" validate:"required"`
}

// NGORegistration is the full payload of an NGO registration submission.
type NGORegistration struct {
	Representative NGORepresentative `json:"representative"`
	Details        NGODetails        `json:"details"`
}

// NGO document kinds, used as upload field names and storage path segments.
const (
	NGODocIDProof                 = "id_proof"
	NGODocRegistrationCertificate = "registration_certificate"
	NGODocPAN                     = "pan_document"
	NGODoc12A                     = "certificate_12a"
	NGODoc80G                     = "certificate_80g"
	NGODocFCRA                    = "fcra_certificate"
	NGODocGST                     = "gst_certificate"
	NGODocBankProof               = "bank_account_proof"
)

var NGODocumentKinds = []string{
	NGODocIDProof,
	NGODocRegistrationCertificate,
	NGODocPAN,
	NGODoc12A,
	NGODoc80G,
	NGODocFCRA,
	NGODocGST,
	NGODocBankProof,
}

// SetDocument assigns a stored reference to the document slot for kind.
// The id proof lives on the representative and is not handled here.
func (d *NGODocuments) SetDocument(kind, ref string) bool {
	switch kind {
	case NGODocRegistrationCertificate:
		d.RegistrationCertificateURL = &ref
	case NGODocPAN:
		d.PANDocumentURL = &ref
	case NGODoc12A:
		d.Certificate12AURL = &ref
	case NGODoc80G:
		d.Certificate80GURL = &ref
	case NGODocFCRA:
		d.FCRACertificateURL = &ref
	case NGODocGST:
		d.GSTCertificateURL = &ref
	case NGODocBankProof:
		d.BankAccountProofURL = &ref
	default:
		return false
	}
	return true
}
