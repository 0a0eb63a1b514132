package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/internal/document/repository"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	args := m.Called(ctx, key, contentType, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) SignedURL(key string, ttl time.Duration) (string, error) {
	args := m.Called(key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Verify(key, token string) error {
	return m.Called(key, token).Error(0)
}

func TestRecordAndList(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}))

	node, _ := snowflake.NewNode(1)
	clk := clock.NewFakeClock(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	store := new(mockStorage)
	store.On("SignedURL", mock.Anything, mock.Anything).Return("https://app.test/files/x?token=t", nil)

	svc := New(Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide(), Storage: store,
	})

	tenantID, otherTenant := node.Generate(), node.Generate()
	clientA, clientB := node.Generate(), node.Generate()
	willID, otherWill := node.Generate(), node.Generate()

	docs := []*domain.Document{
		{TenantID: tenantID, ClientID: clientA, WillID: &willID, Kind: domain.KindSignedWill, StorageKey: "a.pdf", ChecksumSHA256: "aa", SizeBytes: 10},
		{TenantID: tenantID, ClientID: clientB, WillID: &otherWill, Kind: domain.KindSignedWill, StorageKey: "b.pdf", ChecksumSHA256: "bb", SizeBytes: 20},
		{TenantID: otherTenant, ClientID: clientA, Kind: domain.KindSignedWill, StorageKey: "c.pdf", ChecksumSHA256: "cc", SizeBytes: 30},
	}
	for _, d := range docs {
		require.NoError(t, svc.Record(context.Background(), nil, d))
		assert.NotZero(t, d.ID)
		clk.Advance(time.Second)
	}

	ctx := tenantcontext.WithPrincipal(context.Background(), tenantcontext.Principal{
		TenantID: &tenantID, UserID: node.Generate(), Role: authdomain.RoleBroker,
	})

	all, err := svc.List(ctx, domain.ListDocumentRequest{})
	require.NoError(t, err)
	require.Len(t, all.Documents, 2)
	assert.Equal(t, "b.pdf", all.Documents[0].StorageKey)
	assert.Equal(t, "https://app.test/files/x?token=t", all.Documents[0].URL)

	signed, err := svc.List(ctx, domain.ListDocumentRequest{Kind: domain.KindSignedWill})
	require.NoError(t, err)
	require.Len(t, signed.Documents, 2)

	byClient, err := svc.List(ctx, domain.ListDocumentRequest{ClientID: clientA.String()})
	require.NoError(t, err)
	require.Len(t, byClient.Documents, 1)
	assert.Equal(t, willID, *byClient.Documents[0].WillID)

	for _, kind := range []string{"invoice", "draft_will"} {
		_, err = svc.List(ctx, domain.ListDocumentRequest{Kind: kind})
		assert.ErrorIs(t, err, errs.ErrValidationFailed, kind)
	}
}
