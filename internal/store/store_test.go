package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dock-stats-backend/internal/model"
)

var testDBSeq atomic.Int64

// newTestDB opens a fresh in-memory SQLite database with the schema
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.ArrivalRecord{},
		&model.SortingRecord{},
		&model.PickupForecast{},
		&model.OperationLog{},
	))
	return db
}

func intPtr(v int) *int { return &v }

func TestCloseAndInsert(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	first := &model.ArrivalRecord{
		DockNumber: intPtr(3), VehicleType: model.VehicleType53ft,
		VehiclePlate: "AB12", CreatedAt: base,
	}
	firstID, err := s.CloseAndInsert(ctx, 0, 0, first)
	require.NoError(t, err)
	require.NotZero(t, firstID)

	second := &model.ArrivalRecord{
		DockNumber: intPtr(3), VehicleType: model.VehicleType26ft,
		CreatedAt: base.Add(47 * time.Minute),
	}
	_, err = s.CloseAndInsert(ctx, firstID, 47, second)
	require.NoError(t, err)

	closed, err := s.GetArrival(ctx, firstID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 47, *closed.DurationMinutes)
}

func TestScanAllArrivalsOrdered(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Inserted out of order; the scan comes back by arrival time.
	for _, offset := range []time.Duration{2 * time.Hour, 0, 26 * time.Hour} {
		_, err := s.InsertArrival(ctx, &model.ArrivalRecord{
			VehicleType: model.VehicleType53ft, CreatedAt: base.Add(offset),
		})
		require.NoError(t, err)
	}

	records, err := s.ScanAllArrivals(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].CreatedAt.Before(records[1].CreatedAt))
	assert.True(t, records[1].CreatedAt.Before(records[2].CreatedAt))
}

func TestUpdateDurationSetOnce(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	rec := &model.ArrivalRecord{
		DockNumber: intPtr(5), VehicleType: model.VehicleType53ft,
		VehiclePlate: "CD34", CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	id, err := s.InsertArrival(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, s.UpdateDuration(ctx, id, 30))

	got, err := s.GetArrival(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 30, *got.DurationMinutes)

	// A second close attempt hits the guard, the stored value survives.
	err = s.UpdateDuration(ctx, id, 99)
	assert.ErrorIs(t, err, ErrConflict)
	got, err = s.GetArrival(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, *got.DurationMinutes)
}

func TestCloseAndInsertConflictOnClosedOccupant(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	first := &model.ArrivalRecord{
		DockNumber: intPtr(1), VehicleType: model.VehicleType53ft, CreatedAt: base,
	}
	firstID, err := s.CloseAndInsert(ctx, 0, 0, first)
	require.NoError(t, err)

	// First writer wins.
	winner := &model.ArrivalRecord{
		DockNumber: intPtr(1), VehicleType: model.VehicleType53ft,
		CreatedAt: base.Add(30 * time.Minute),
	}
	_, err = s.CloseAndInsert(ctx, firstID, 30, winner)
	require.NoError(t, err)

	// Second writer raced on the same previous occupant and must not
	// close it again or insert its record.
	loser := &model.ArrivalRecord{
		DockNumber: intPtr(1), VehicleType: model.VehicleType53ft,
		CreatedAt: base.Add(31 * time.Minute),
	}
	_, err = s.CloseAndInsert(ctx, firstID, 31, loser)
	assert.ErrorIs(t, err, ErrConflict)

	closed, err := s.GetArrival(ctx, firstID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 30, *closed.DurationMinutes, "duration is set exactly once")

	records, err := s.ScanByCreatedAt(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 2, "the losing insert must be rolled back")
}

func TestFindLastDockRecord(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	for i, rec := range []*model.ArrivalRecord{
		{DockNumber: intPtr(5), VehicleType: model.VehicleType26ft, CreatedAt: base},
		{DockNumber: intPtr(5), VehicleType: model.VehicleType53ft, VehiclePlate: "XY99", CreatedAt: base.Add(time.Hour)},
		// Car at the same dock number must be invisible to the ledger.
		{DockNumber: intPtr(5), VehicleType: model.VehicleTypeCar, CreatedAt: base.Add(2 * time.Hour)},
		{DockNumber: intPtr(6), VehicleType: model.VehicleType53ft, CreatedAt: base.Add(3 * time.Hour)},
	} {
		_, err := s.InsertArrival(ctx, rec)
		require.NoError(t, err, "record %d", i)
	}

	last, err := s.FindLastDockRecord(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "XY99", last.VehiclePlate)

	none, err := s.FindLastDockRecord(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestScanByCreatedAtHalfOpen(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	for _, at := range []time.Time{
		start.Add(-time.Second), // before window
		start,                   // inclusive lower bound
		start.Add(12 * time.Hour),
		end.Add(-time.Second),
		end, // exclusive upper bound
	} {
		_, err := s.InsertArrival(ctx, &model.ArrivalRecord{
			VehicleType: model.VehicleTypeVan, CreatedAt: at,
		})
		require.NoError(t, err)
	}

	records, err := s.ScanByCreatedAt(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt.Before(records[i-1].CreatedAt), "ordered by created_at")
	}
}

func TestUpdateArrivalLeavesLedgerFieldsAlone(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rec := &model.ArrivalRecord{
		DockNumber: intPtr(2), VehicleType: model.VehicleType53ft,
		LoadAmount: 24, Pieces: 8256, CreatedAt: base,
	}
	id, err := s.InsertArrival(ctx, rec)
	require.NoError(t, err)

	rec.LoadAmount = 10
	rec.Pieces = 3440
	rec.Remark = "corrected load"
	require.NoError(t, err)
	require.NoError(t, s.UpdateArrival(ctx, rec))

	got, err := s.GetArrival(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, got.LoadAmount)
	assert.Equal(t, 3440, got.Pieces)
	assert.Equal(t, "corrected load", got.Remark)
	assert.True(t, got.CreatedAt.Equal(base), "created_at is immutable")
	assert.Nil(t, got.DurationMinutes, "duration stays ledger-owned")
}

func TestUpsertForecast(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertForecast(ctx, &model.PickupForecast{
		ForecastDate: "2025-03-10", Amount: 50000, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.UpsertForecast(ctx, &model.PickupForecast{
		ForecastDate: "2025-03-10", Amount: 60000, CreatedAt: now, UpdatedAt: now.Add(time.Minute),
	}))

	forecasts, err := s.ListForecasts(ctx)
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, 60000, forecasts[0].Amount)
}

func TestSortingRoundTrip(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	id, err := s.CreateSorting(ctx, &model.SortingRecord{
		SortingDate: "2025-03-10", TimeBucket: "19", Pieces: 1200, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	records, err := s.ListSortingByDate(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1200, records[0].Pieces)

	require.NoError(t, s.DeleteSorting(ctx, id))
	assert.ErrorIs(t, s.DeleteSorting(ctx, id), ErrNotFound)
}
