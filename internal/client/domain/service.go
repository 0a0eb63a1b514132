package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
)

type CreateClientRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	DateOfBirth  string `json:"date_of_birth" validate:"omitempty,date"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	AddressLine1 string `json:"address_line1" validate:"omitempty,max=200"`
	AddressLine2 string `json:"address_line2" validate:"omitempty,max=200"`
	City         string `json:"city" validate:"omitempty,max=100"`
	Postcode     string `json:"postcode" validate:"omitempty,max=20"`
	Country      string `json:"country" validate:"omitempty,max=100"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

// UpdateClientRequest changes only the fields that are present.
type UpdateClientRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,max=100"`
	DateOfBirth  *string `json:"date_of_birth" validate:"omitempty,date"`
	Email        *string `json:"email" validate:"omitempty,email,max=254"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	AddressLine1 *string `json:"address_line1" validate:"omitempty,max=200"`
	AddressLine2 *string `json:"address_line2" validate:"omitempty,max=200"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	Postcode     *string `json:"postcode" validate:"omitempty,max=20"`
	Country      *string `json:"country" validate:"omitempty,max=100"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

type ListClientRequest struct {
	pagination.Pagination
	Search string `form:"search"`
	Status string `form:"status"`
}

type ListClientFilter struct {
	Search    string
	Status    string
	PageToken string
	Limit     int
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	Get(ctx context.Context, id string) (ClientDetail, error)
	Update(ctx context.Context, id string, req UpdateClientRequest) (Client, error)
	// Find loads a client of the caller's tenant for use by other modules.
	Find(ctx context.Context, id snowflake.ID) (*Client, error)
}

var (
	ErrNotFound         = errs.New(errs.KindNotFound, "client_not_found")
	ErrInvalidPageToken = errs.New(errs.KindValidationFailed, "invalid_page_token")
)
