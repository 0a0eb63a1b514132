// Package domain holds the will entity, its structured payload and the
// lifecycle rules shared by the will service.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusSentForApproval Status = "sent_for_approval"
	StatusSigned          Status = "signed"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// The only legal moves are draft to sent_for_approval and sent_for_approval to signed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusSentForApproval
	case StatusSentForApproval:
		return next == StatusSigned
	default:
		return false
	}
}

// Editable reports whether content changes and deletion are allowed, which is
// while the will can still be sent for approval.
func (s Status) Editable() bool {
	return s.CanTransition(StatusSentForApproval)
}

type Will struct {
	ID             snowflake.ID                `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID                `gorm:"not null;index" json:"tenant_id"`
	ClientID       snowflake.ID                `gorm:"not null;index" json:"client_id"`
	Status         Status                      `gorm:"type:text;not null;default:'draft'" json:"status"`
	Version        int                         `gorm:"not null;default:1" json:"version"`
	JSONPayload    datatypes.JSONType[Payload] `gorm:"column:json_payload" json:"json_payload"`
	DraftMarkdown  string                      `gorm:"type:text;not null;default:''" json:"draft_markdown"`
	SignedPDFURL   *string                     `gorm:"column:signed_pdf_url;type:text" json:"signed_pdf_url"`
	ChecksumSHA256 *string                     `gorm:"column:checksum_sha256;type:text" json:"checksum_sha256"`
	LockAt         *time.Time                  `gorm:"column:lock_at" json:"lock_at"`
	CreatedAt      time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"not null" json:"updated_at"`

	// DownloadURL is a short-lived signed link to the signed artifact.
	DownloadURL string `gorm:"-" json:"download_url,omitempty"`
}

func (Will) TableName() string { return "wills" }

func (w Will) Payload() Payload {
	return w.JSONPayload.Data()
}

// Payload is the structured will form collected by the wizard.
type Payload struct {
	PersonalInfo  *PersonalInfo `json:"personal_info,omitempty"`
	Executors     []Executor    `json:"executors,omitempty" validate:"omitempty,dive"`
	Beneficiaries []Beneficiary `json:"beneficiaries,omitempty" validate:"omitempty,dive"`
	Guardianship  *Guardianship `json:"guardianship,omitempty"`
	Residue       *Residue      `json:"residue,omitempty"`
}

type Address struct {
	Line1    string `json:"line1,omitempty" validate:"max=200"`
	Line2    string `json:"line2,omitempty" validate:"max=200"`
	City     string `json:"city,omitempty" validate:"max=100"`
	Postcode string `json:"postcode,omitempty" validate:"max=20"`
	Country  string `json:"country,omitempty" validate:"max=100"`
}

type PersonalInfo struct {
	FullName      string   `json:"full_name,omitempty" validate:"max=200"`
	DateOfBirth   string   `json:"date_of_birth,omitempty" validate:"omitempty,date"`
	MaritalStatus string   `json:"marital_status,omitempty" validate:"max=50"`
	Nationality   string   `json:"nationality,omitempty" validate:"max=100"`
	Address       *Address `json:"address,omitempty"`
}

type Executor struct {
	FullName     string `json:"full_name" validate:"required,notblank,max=200"`
	Relationship string `json:"relationship,omitempty" validate:"max=100"`
	Address      string `json:"address,omitempty" validate:"max=500"`
	IsReserve    bool   `json:"is_reserve,omitempty"`
}

type Beneficiary struct {
	Name         string  `json:"name" validate:"required,notblank,max=200"`
	Relationship string  `json:"relationship,omitempty" validate:"max=100"`
	Share        float64 `json:"share" validate:"gte=0,lte=100"`
	IsCharity    bool    `json:"is_charity,omitempty"`
}

type Guardian struct {
	FullName     string `json:"full_name" validate:"required,notblank,max=200"`
	Relationship string `json:"relationship,omitempty" validate:"max=100"`
	Address      string `json:"address,omitempty" validate:"max=500"`
}

type Guardianship struct {
	HasMinorChildren    bool       `json:"has_minor_children"`
	Guardians           []Guardian `json:"guardians,omitempty" validate:"omitempty,dive"`
	SpecialInstructions string     `json:"special_instructions,omitempty" validate:"max=2000"`
}

type Gift struct {
	Beneficiary  string `json:"beneficiary" validate:"required,max=200"`
	ItemOrAmount string `json:"item_or_amount" validate:"required,max=500"`
	Notes        string `json:"notes,omitempty" validate:"max=1000"`
}

type Residue struct {
	DistributionType string `json:"distribution_type,omitempty" validate:"max=100"`
	SpecificGifts    []Gift `json:"specific_gifts,omitempty" validate:"omitempty,dive"`
	FuneralWishes    string `json:"funeral_wishes,omitempty" validate:"max=2000"`
	SpecialClauses   string `json:"special_clauses,omitempty" validate:"max=5000"`
}

// IsEmpty reports whether no section has been filled in.
func (p Payload) IsEmpty() bool {
	return p.PersonalInfo == nil &&
		len(p.Executors) == 0 &&
		len(p.Beneficiaries) == 0 &&
		p.Guardianship == nil &&
		p.Residue == nil
}

// Canonical is the byte form used to detect material changes. Field order
// is fixed by the struct definitions so equal payloads encode equally.
func (p Payload) Canonical() []byte {
	b, _ := json.Marshal(p)
	return b
}

// TotalShare sums beneficiary shares.
func (p Payload) TotalShare() float64 {
	var total float64
	for _, b := range p.Beneficiaries {
		total += b.Share
	}
	return total
}

// MissingForApproval lists the payload fields that must be present before a
// will can be sent for approval.
func (p Payload) MissingForApproval() []string {
	var missing []string
	if p.PersonalInfo == nil || strings.TrimSpace(p.PersonalInfo.FullName) == "" {
		missing = append(missing, "json_payload.personal_info.full_name")
	}
	if len(p.Executors) == 0 {
		missing = append(missing, "json_payload.executors")
	}
	if len(p.Beneficiaries) == 0 {
		missing = append(missing, "json_payload.beneficiaries")
	}
	return missing
}
