package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrNotFound               = errs.New(errs.KindNotFound, "will_not_found")
	ErrNotDraft               = errs.New(errs.KindInvalidState, "will_not_draft")
	ErrNotSentForApproval     = errs.New(errs.KindInvalidState, "will_not_sent_for_approval")
	ErrOnlyDraftDeletable     = errs.New(errs.KindInvalidState, "only_draft_deletable")
	ErrConcurrentModification = errs.New(errs.KindConcurrentModification, "will_version_conflict")
	ErrInvalidPageToken       = errs.New(errs.KindValidationFailed, "invalid_page_token")
)

type CreateWillRequest struct {
	ClientID      string   `json:"client_id" validate:"required"`
	JSONPayload   *Payload `json:"json_payload"`
	DraftMarkdown *string  `json:"draft_markdown" validate:"omitempty,max=100000"`
}

// UpdateWillRequest replaces each section that is present. ExpectedVersion,
// when set, must match the stored version.
type UpdateWillRequest struct {
	PersonalInfo    *PersonalInfo  `json:"personal_info"`
	Executors       *[]Executor    `json:"executors" validate:"omitempty,dive"`
	Beneficiaries   *[]Beneficiary `json:"beneficiaries" validate:"omitempty,dive"`
	Guardianship    *Guardianship  `json:"guardianship"`
	Residue         *Residue       `json:"residue"`
	ExpectedVersion *int           `json:"expected_version" validate:"omitempty,gte=1"`
}

// Fields names the sections present in the request, in payload order.
func (r UpdateWillRequest) Fields() []string {
	var fields []string
	if r.PersonalInfo != nil {
		fields = append(fields, "personal_info")
	}
	if r.Executors != nil {
		fields = append(fields, "executors")
	}
	if r.Beneficiaries != nil {
		fields = append(fields, "beneficiaries")
	}
	if r.Guardianship != nil {
		fields = append(fields, "guardianship")
	}
	if r.Residue != nil {
		fields = append(fields, "residue")
	}
	return fields
}

// Apply returns base with the request's sections replaced.
func (r UpdateWillRequest) Apply(base Payload) Payload {
	out := base
	if r.PersonalInfo != nil {
		out.PersonalInfo = r.PersonalInfo
	}
	if r.Executors != nil {
		out.Executors = *r.Executors
	}
	if r.Beneficiaries != nil {
		out.Beneficiaries = *r.Beneficiaries
	}
	if r.Guardianship != nil {
		out.Guardianship = r.Guardianship
	}
	if r.Residue != nil {
		out.Residue = r.Residue
	}
	return out
}

type Witness struct {
	Name string `json:"name" validate:"required,notblank,max=200"`
}

type CompleteAttestationRequest struct {
	Witnesses []Witness `json:"witnesses" validate:"omitempty,max=4,dive"`
}

type ListWillRequest struct {
	pagination.Pagination
	ClientID string `form:"client_id"`
	Status   string `form:"status" validate:"omitempty,oneof=draft sent_for_approval signed"`
}

type ListWillFilter struct {
	ClientID  *snowflake.ID
	Status    Status
	PageToken string
	Limit     int
}

type ListWillResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Wills    []Will              `json:"wills"`
}

type Preview struct {
	WillID         snowflake.ID `json:"will_id"`
	Version        int          `json:"version"`
	DraftMarkdown  string       `json:"draft_markdown"`
	PDFBase64      string       `json:"pdf_base64"`
	ChecksumSHA256 string       `json:"checksum_sha256"`
	PDF            []byte       `json:"-"`
}

// SignedFields are written together when a will is attested.
type SignedFields struct {
	SignedPDFURL   string
	ChecksumSHA256 string
	LockAt         time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, will *Will) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Will, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListWillFilter) ([]*Will, error)
	// UpdateDraft writes payload, markdown and version when the row is still
	// a draft at expectedVersion. It returns the number of rows changed.
	UpdateDraft(ctx context.Context, db *gorm.DB, will *Will, expectedVersion int) (int64, error)
	// Transition moves the row from one status to another, returning rows changed.
	Transition(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, from, to Status, at time.Time, signed *SignedFields) (int64, error)
	DeleteDraft(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateWillRequest) (Will, error)
	Get(ctx context.Context, id string) (Will, error)
	List(ctx context.Context, req ListWillRequest) (ListWillResponse, error)
	Update(ctx context.Context, id string, req UpdateWillRequest) (Will, error)
	Preview(ctx context.Context, id string) (Preview, error)
	SendForApproval(ctx context.Context, id string) (Will, error)
	CompleteAttestation(ctx context.Context, id string, req CompleteAttestationRequest) (Will, error)
	Delete(ctx context.Context, id string) error
}
