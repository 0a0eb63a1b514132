package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps PageSize into [1, MaxPageSize], using def when unset.
func (p Pagination) Limit(def int) int {
	if def <= 0 {
		def = DefaultPageSize
	}
	switch {
	case p.PageSize <= 0:
		return def
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// CursorFor encodes the keyset position of a row ordered by (timestamp desc, id desc).
func CursorFor(id snowflake.ID, at time.Time) string {
	token, _ := EncodeCursor(Cursor{ID: id.String(), CreatedAt: at.UTC().Format(time.RFC3339Nano)})
	return token
}

// Apply adds the keyset predicate for token and a limit+1 fetch to stmt.
// column is the timestamp column the query orders by.
func Apply(stmt *gorm.DB, column, token string, limit int) (*gorm.DB, error) {
	if token != "" {
		cursor, err := DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, ErrInvalidPageToken
		}
		stmt = stmt.Where("("+column+" < ?) OR ("+column+" = ? AND id < ?)", at, at, id)
	}
	return stmt.Order(column + " DESC").Order("id DESC").Limit(limit + 1), nil
}

// BuildCursorPageInfo trims the extra row fetched by Apply and reports whether more pages exist.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, PageInfo) {
	if len(data) == 0 {
		return data, PageInfo{}
	}
	if len(data) <= limit {
		return data, PageInfo{HasMore: false}
	}
	data = data[:limit]
	return data, PageInfo{
		HasMore:       true,
		NextPageToken: extractCursor(data[len(data)-1]),
	}
}
