package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	apperrors "github.com/aaaiserr1401/smart-mabel-kz/pkg/errors"
)

func newTestStore(t *testing.T) *LeadStore {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        ":memory:",
		Conn:       sqlDB,
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Lead{}))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewLeadStore(db)
}

func seedLeads(t *testing.T, s *LeadStore, n int) []domain.Lead {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leads := make([]domain.Lead, 0, n)
	for i := 0; i < n; i++ {
		lead := domain.Lead{
			Name:      "Visitor",
			Phone:     "+77000000000",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.Insert(ctx, &lead))
		leads = append(leads, lead)
	}
	return leads
}

func TestInsertAssignsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lead := &domain.Lead{Name: "Aigerim", Phone: "+77001234567"}
	require.NoError(t, s.Insert(ctx, lead))

	assert.NotZero(t, lead.ID)
	assert.Equal(t, domain.StatusNew, lead.Status)
	assert.False(t, lead.CreatedAt.IsZero())
	assert.Nil(t, lead.UTM)
	assert.Nil(t, lead.Referrer)

	second := &domain.Lead{Name: "Bolat", Phone: "+77007654321"}
	require.NoError(t, s.Insert(ctx, second))
	assert.Greater(t, second.ID, lead.ID)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seeded := seedLeads(t, s, 5)

	leads, err := s.List(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, leads, 5)

	// Last inserted has the latest created_at and comes first
	assert.Equal(t, seeded[4].ID, leads[0].ID)
	assert.Equal(t, seeded[0].ID, leads[4].ID)
	for i := 1; i < len(leads); i++ {
		assert.False(t, leads[i].CreatedAt.After(leads[i-1].CreatedAt))
	}
}

func TestListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedLeads(t, s, 7)

	page1, err := s.List(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 3)

	page3, err := s.List(ctx, 3, 6)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	leads := seedLeads(t, s, 1)
	id := leads[0].ID

	require.NoError(t, s.UpdateStatus(ctx, id, domain.StatusDone))

	got, err := s.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, got[0].Status)
	assert.Equal(t, leads[0].CreatedAt.Unix(), got[0].CreatedAt.Unix())
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	leads := seedLeads(t, s, 1)

	err := s.UpdateStatus(ctx, leads[0].ID, "archived")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)

	// Row unchanged
	got, err := s.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got[0].Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateStatus(context.Background(), 999, domain.StatusSpam)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seeded := seedLeads(t, s, 4)

	leads, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 4)
	assert.Equal(t, seeded[3].ID, leads[0].ID)
}
