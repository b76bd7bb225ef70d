//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"FieldForce/internal/model"
	"FieldForce/storage/database"
)

func newIntegrationStore(t *testing.T) *GormStore {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("fieldforce"),
		postgrescontainer.WithUsername("fieldforce"),
		postgrescontainer.WithPassword("fieldforce"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewGormStore(db)
}

func TestGormStoreSessionLifecycle(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, &model.Employee{
		BaseModel: model.BaseModel{ID: 42},
		Name:      "Asha",
		Email:     "asha@example.com",
		Role:      model.EmployeeRoleEmployee,
		Status:    model.EmployeeStatusActive,
		Timezone:  "Asia/Kolkata",
	}))

	employee, err := store.FindEmployee(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, employee)
	assert.Equal(t, "Asia/Kolkata", employee.Timezone)

	missing, err := store.FindEmployee(ctx, 43)
	require.NoError(t, err)
	assert.Nil(t, missing)

	start := time.Date(2025, 3, 14, 3, 30, 0, 0, time.UTC)
	session := &model.AttendanceSession{
		BaseModel:     model.BaseModel{ID: 9001},
		EmployeeID:    42,
		WorkDate:      "2025-03-14",
		Timezone:      "Asia/Kolkata",
		Status:        model.AttendanceStatusPresent,
		StartTime:     &start,
		StartLocation: &model.GeoPoint{Type: model.GeoJSONPoint, Coordinates: [2]float64{77.59, 12.97}},
	}

	err = store.WithinTransaction(ctx, func(ctx context.Context, uow UnitOfWork) error {
		existing, err := uow.FindSessionForUpdate(ctx, 42, "2025-03-14")
		require.NoError(t, err)
		require.Nil(t, existing)
		return uow.CreateSession(ctx, session)
	})
	require.NoError(t, err)

	// 唯一索引兜底
	err = store.WithinTransaction(ctx, func(ctx context.Context, uow UnitOfWork) error {
		dup := *session
		dup.ID = 9002
		return uow.CreateSession(ctx, &dup)
	})
	require.ErrorIs(t, err, ErrDuplicateSession)

	end := start.Add(8*time.Hour + 15*time.Minute)
	err = store.WithinTransaction(ctx, func(ctx context.Context, uow UnitOfWork) error {
		current, err := uow.FindSessionForUpdate(ctx, 42, "2025-03-14")
		require.NoError(t, err)
		require.NotNil(t, current)
		current.EndTime = &end
		current.EndLocation = &model.GeoPoint{Type: model.GeoJSONPoint, Coordinates: [2]float64{77.6, 12.98}}
		current.WorkingSeconds = int64(end.Sub(start).Seconds())
		return uow.UpdateSession(ctx, current)
	})
	require.NoError(t, err)

	// 已签退的记录不能再次更新
	err = store.WithinTransaction(ctx, func(ctx context.Context, uow UnitOfWork) error {
		again := *session
		again.EndTime = &end
		return uow.UpdateSession(ctx, &again)
	})
	require.ErrorIs(t, err, ErrStaleSession)

	stored, err := store.FindSession(ctx, 42, "2025-03-14")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.SessionStateCheckedOut, stored.State())
	require.NotNil(t, stored.EndLocation)
	assert.Equal(t, 77.6, stored.EndLocation.Longitude())
	assert.Equal(t, int64(29700), stored.WorkingSeconds)
}

func TestGormStoreListSessionsPaginates(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		day := start.AddDate(0, 0, i)
		err := store.WithinTransaction(ctx, func(ctx context.Context, uow UnitOfWork) error {
			return uow.CreateSession(ctx, &model.AttendanceSession{
				BaseModel:  model.BaseModel{ID: int64(100 + i)},
				EmployeeID: 7,
				WorkDate:   day.Format(model.WorkDateLayout),
				Timezone:   "UTC",
				Status:     model.AttendanceStatusPresent,
				StartTime:  &day,
			})
		})
		require.NoError(t, err)
	}

	first, err := store.ListSessions(ctx, SessionQuery{EmployeeID: 7, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "2025-03-05", first[0].WorkDate)
	assert.Equal(t, "2025-03-04", first[1].WorkDate)

	next, err := store.ListSessions(ctx, SessionQuery{
		EmployeeID:     7,
		BeforeWorkDate: first[1].WorkDate,
		BeforeID:       first[1].ID,
		From:           "2025-03-02",
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "2025-03-03", next[0].WorkDate)
	assert.Equal(t, "2025-03-02", next[1].WorkDate)
}

func TestGormStoreRecordIsIdempotent(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	log := &model.AttendanceAuditLog{
		MessageID:  "msg-1",
		EventType:  model.EventAttendanceCheckedIn,
		SessionID:  9001,
		EmployeeID: 42,
		WorkDate:   "2025-03-14",
		OccurredAt: time.Now().UTC(),
	}
	inserted, err := store.Record(ctx, log)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *log
	dup.ID = 0
	inserted, err = store.Record(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)
}
