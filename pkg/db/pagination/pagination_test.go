package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, 50, Pagination{}.Limit(50))
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit(0))
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit(50))
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit(50))
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	token := CursorFor(snowflake.ID(42), at)

	c, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", c.ID)
	assert.Equal(t, at.Format(time.RFC3339Nano), c.CreatedAt)

	_, err = DecodeCursor("not base64!")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ n int }
	rows := []*row{{1}, {2}, {3}}

	out, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return string(rune('a' + r.n)) })
	assert.Len(t, out, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "c", info.NextPageToken)

	out, info = BuildCursorPageInfo(rows, 3, func(r *row) string { return "x" })
	assert.Len(t, out, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
