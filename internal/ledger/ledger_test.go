package ledger

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

	"dock-stats-backend/config"
	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/store"
)

var testDBSeq atomic.Int64

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:ledgertest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ArrivalRecord{}))
	return store.NewGormStore(db)
}

func newTestService(t *testing.T, s store.Store) *Service {
	t.Helper()
	b := config.BusinessConfig{Timezone: "America/Los_Angeles"}
	require.NoError(t, config.ApplyBusinessDefaults(&b))
	return NewService(s, &b)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func intPtr(v int) *int { return &v }

func TestRecordArrivalClosesPreviousOccupant(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	first := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(first))
	rec1, warn, err := svc.RecordArrival(ctx, Proposed{
		DockNumber: intPtr(3), VehicleType: "53ft", VehiclePlate: "AB12",
	})
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Nil(t, rec1.DurationMinutes, "new arrival starts open")

	svc.SetClock(fixedClock(first.Add(47*time.Minute + 30*time.Second)))
	rec2, _, err := svc.RecordArrival(ctx, Proposed{
		DockNumber: intPtr(3), VehicleType: "26ft",
	})
	require.NoError(t, err)

	closed, err := s.GetArrival(ctx, rec1.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 47, *closed.DurationMinutes, "whole minutes, floored")

	open, err := s.GetArrival(ctx, rec2.ID)
	require.NoError(t, err)
	assert.Nil(t, open.DurationMinutes, "latest arrival is the open occupant")
}

// After any sequence of arrivals at one dock, exactly the most recent
// dock-occupying record is open.
func TestSingleOpenOccupantInvariant(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	var lastID int64
	for i := 0; i < 5; i++ {
		svc.SetClock(fixedClock(base.Add(time.Duration(i) * time.Hour)))
		rec, _, err := svc.RecordArrival(ctx, Proposed{
			DockNumber: intPtr(7), VehicleType: "53ft",
		})
		require.NoError(t, err)
		lastID = rec.ID
	}

	records, err := s.ScanByCreatedAt(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 5)

	openCount := 0
	for _, r := range records {
		if r.IsOpen() {
			openCount++
			assert.Equal(t, lastID, r.ID, "only the most recent record may be open")
		}
	}
	assert.Equal(t, 1, openCount)
}

func TestClockSkewClampsDurationToZero(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	first := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(first))
	rec1, _, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(1), VehicleType: "53ft"})
	require.NoError(t, err)

	// Clock moved backwards between arrivals.
	svc.SetClock(fixedClock(first.Add(-10 * time.Minute)))
	_, _, err = svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(1), VehicleType: "53ft"})
	require.NoError(t, err)

	closed, err := s.GetArrival(ctx, rec1.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 0, *closed.DurationMinutes)
}

func TestCarAndVanNeverTouchDockState(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(base))
	truck, _, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(4), VehicleType: "53ft"})
	require.NoError(t, err)

	// A Car with the same dock number must neither close the truck nor
	// become an open occupant.
	svc.SetClock(fixedClock(base.Add(10 * time.Minute)))
	car, warn, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(4), VehicleType: "Car"})
	require.NoError(t, err)
	assert.Nil(t, warn, "non-dock arrivals never raise a duplicate warning")

	stillOpen, err := s.GetArrival(ctx, truck.ID)
	require.NoError(t, err)
	assert.Nil(t, stillOpen.DurationMinutes)

	svc.SetClock(fixedClock(base.Add(40 * time.Minute)))
	_, _, err = svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(4), VehicleType: "53ft"})
	require.NoError(t, err)

	closed, err := s.GetArrival(ctx, truck.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 40, *closed.DurationMinutes, "the Car did not split the dwell time")

	carRec, err := s.GetArrival(ctx, car.ID)
	require.NoError(t, err)
	assert.Nil(t, carRec.DurationMinutes, "Car records are never closed")
	assert.Equal(t, "basket", carRec.Unit)
	assert.Equal(t, 172, carRec.Pieces)
}

func TestDuplicateWarning(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.SetClock(fixedClock(base))
	prev, _, err := svc.RecordArrival(ctx, Proposed{
		DockNumber: intPtr(2), VehicleType: "53ft", VehiclePlate: "XY99",
	})
	require.NoError(t, err)

	svc.SetClock(fixedClock(base.Add(10 * time.Minute)))
	rec, warn, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(2), VehicleType: "53ft"})
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, prev.ID, warn.PriorRecordID)
	assert.Equal(t, "XY99", warn.PriorPlate)
	assert.Equal(t, 10, warn.ElapsedMinutes)
	assert.NotZero(t, rec.ID, "the warning does not block insertion")

	// Beyond the threshold no warning is raised.
	svc.SetClock(fixedClock(base.Add(50 * time.Minute)))
	_, warn, err = svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(2), VehicleType: "53ft"})
	require.NoError(t, err)
	assert.Nil(t, warn)
}

func TestRecordArrivalValidation(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, _, err := svc.RecordArrival(ctx, Proposed{VehicleType: "53ft"})
	assert.ErrorIs(t, err, ErrDockRequired)

	_, _, err = svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(1)})
	assert.ErrorIs(t, err, ErrVehicleTypeRequired)

	// Car needs no dock at all.
	_, _, err = svc.RecordArrival(ctx, Proposed{VehicleType: "Car"})
	assert.NoError(t, err)
}

func TestShiftAndTimeBucketStamping(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// 14:30 LA wall clock: early shift, bucket "14".
	svc.SetClock(fixedClock(time.Date(2025, 3, 10, 14, 30, 0, 0, la)))
	rec, _, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(1), VehicleType: "53ft"})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftEarly, rec.Shift)
	assert.Equal(t, "14", rec.TimeBucket)

	// 17:00 LA is the late-shift boundary; an explicit bucket is kept.
	svc.SetClock(fixedClock(time.Date(2025, 3, 10, 17, 0, 0, 0, la)))
	rec, _, err = svc.RecordArrival(ctx, Proposed{
		DockNumber: intPtr(1), VehicleType: "53ft", TimeBucket: "24",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftLate, rec.Shift)
	assert.Equal(t, "24", rec.TimeBucket)
}

// fakeConflictStore forces CloseAndInsert to fail once with ErrConflict to
// exercise the ledger's retry-from-read path.
type fakeConflictStore struct {
	store.Store
	conflicts int
	reads     int
}

func (f *fakeConflictStore) FindLastDockRecord(ctx context.Context, dock int) (*model.ArrivalRecord, error) {
	f.reads++
	return f.Store.FindLastDockRecord(ctx, dock)
}

func (f *fakeConflictStore) CloseAndInsert(ctx context.Context, prevID int64, minutes int, rec *model.ArrivalRecord) (int64, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return 0, store.ErrConflict
	}
	return f.Store.CloseAndInsert(ctx, prevID, minutes, rec)
}

func TestRecordArrivalRetriesOnceOnConflict(t *testing.T) {
	fake := &fakeConflictStore{Store: newTestStore(t), conflicts: 1}
	svc := newTestService(t, fake)
	ctx := context.Background()

	rec, _, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(9), VehicleType: "53ft"})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, 2, fake.reads, "the retry re-reads the open occupant")
}

func TestRecordArrivalGivesUpAfterSecondConflict(t *testing.T) {
	fake := &fakeConflictStore{Store: newTestStore(t), conflicts: 2}
	svc := newTestService(t, fake)

	_, _, err := svc.RecordArrival(context.Background(), Proposed{DockNumber: intPtr(9), VehicleType: "53ft"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

// Many concurrent arrivals at one dock must leave exactly one open
// occupant.
func TestConcurrentArrivalsSameDock(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	var seq atomic.Int64
	svc.SetClock(func() time.Time {
		return base.Add(time.Duration(seq.Add(1)) * time.Minute)
	})

	const n = 10
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _, err := svc.RecordArrival(ctx, Proposed{DockNumber: intPtr(5), VehicleType: "53ft"})
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	records, err := s.ScanByCreatedAt(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, n)

	openCount := 0
	for _, r := range records {
		if r.IsOpen() {
			openCount++
		}
	}
	assert.Equal(t, 1, openCount)
}
