// Package ledger owns the dock-occupancy bookkeeping: every arrival closes
// the dock's previous open occupant and becomes the new one.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"dock-stats-backend/config"
	"dock-stats-backend/internal/classify"
	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/store"
)

// ErrDockRequired is returned when a dock-occupying arrival carries no dock
// number.
var ErrDockRequired = errors.New("dock number is required for dock-occupying vehicle types")

// ErrVehicleTypeRequired is returned when an arrival carries no vehicle type.
var ErrVehicleTypeRequired = errors.New("vehicle type is required")

// Proposed is an inbound arrival before classification and stamping.
// LoadAmount and Pieces are nil when the caller did not supply them.
type Proposed struct {
	DockNumber   *int
	VehicleType  string
	VehiclePlate string
	Unit         string
	LoadAmount   *int
	Pieces       *int
	TimeBucket   string
	Remark       string
}

// DuplicateWarning flags a suspiciously quick repeat arrival on the same
// dock. Advisory only: the new record is inserted regardless.
type DuplicateWarning struct {
	PriorRecordID  int64  `json:"prior_record_id"`
	PriorPlate     string `json:"prior_plate"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
}

// Service records arrivals against the store. Writes for the same dock are
// serialized through a per-dock mutex; different docks proceed in parallel.
type Service struct {
	store              store.Store
	loc                *time.Location
	shiftCutoffHour    int
	duplicateThreshold time.Duration
	now                func() time.Time

	mu        sync.Mutex
	dockLocks map[int]*sync.Mutex
}

// NewService creates a ledger service governed by the business config.
func NewService(s store.Store, b *config.BusinessConfig) *Service {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:              s,
		loc:                loc,
		shiftCutoffHour:    b.ShiftCutoffHour,
		duplicateThreshold: time.Duration(b.DuplicateThresholdMinutes) * time.Minute,
		now:                time.Now,
		dockLocks:          make(map[int]*sync.Mutex),
	}
}

// SetClock overrides the wall clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) dockLock(dock int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dockLocks[dock]
	if !ok {
		l = &sync.Mutex{}
		s.dockLocks[dock] = l
	}
	return l
}

// RecordArrival classifies and stamps the proposed arrival, closes the
// dock's previous open occupant, and inserts the new record as the open
// occupant. Car and Van arrivals are inserted without touching any dock's
// occupancy state. The returned warning, when non-nil, flags a possible
// duplicate entry.
func (s *Service) RecordArrival(ctx context.Context, p Proposed) (*model.ArrivalRecord, *DuplicateWarning, error) {
	if p.VehicleType == "" {
		return nil, nil, ErrVehicleTypeRequired
	}
	occupies := model.DockOccupying(p.VehicleType)
	if occupies && p.DockNumber == nil {
		return nil, nil, fmt.Errorf("%w: vehicle type %q", ErrDockRequired, p.VehicleType)
	}

	rec := s.buildRecord(p)

	if !occupies {
		s.stamp(rec, p.TimeBucket)
		id, err := s.store.InsertArrival(ctx, rec)
		if err != nil {
			return nil, nil, err
		}
		rec.ID = id
		return rec, nil, nil
	}

	dock := *p.DockNumber
	lock := s.dockLock(dock)
	lock.Lock()
	defer lock.Unlock()

	// Stamped inside the critical section so created_at order matches
	// insertion order at this dock.
	s.stamp(rec, p.TimeBucket)

	// A racing writer on another instance may still close the occupant
	// between our read and the guarded update; re-read once and retry.
	var warning *DuplicateWarning
	for attempt := 0; attempt < 2; attempt++ {
		prev, err := s.store.FindLastDockRecord(ctx, dock)
		if err != nil {
			return nil, nil, err
		}

		var prevID int64
		minutes := 0
		if prev != nil {
			elapsed := rec.CreatedAt.Sub(prev.CreatedAt)
			if elapsed < s.duplicateThreshold {
				warning = &DuplicateWarning{
					PriorRecordID:  prev.ID,
					PriorPlate:     prev.VehiclePlate,
					ElapsedMinutes: int(elapsed.Minutes()),
				}
			}
			if prev.IsOpen() {
				prevID = prev.ID
				minutes = occupancyMinutes(prev.CreatedAt, rec.CreatedAt)
			}
		}

		id, err := s.store.CloseAndInsert(ctx, prevID, minutes, rec)
		if errors.Is(err, store.ErrConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("dock %d: %w", dock, err)
		}
		rec.ID = id
		return rec, warning, nil
	}
	return nil, nil, fmt.Errorf("dock %d: %w", dock, store.ErrConflict)
}

// buildRecord applies the classifier to the proposed arrival. Creation-time
// fields are filled in later by stamp.
func (s *Service) buildRecord(p Proposed) *model.ArrivalRecord {
	res := classify.Apply(p.VehicleType, p.Unit, p.LoadAmount, p.Pieces)

	return &model.ArrivalRecord{
		DockNumber:   p.DockNumber,
		VehicleType:  p.VehicleType,
		VehiclePlate: p.VehiclePlate,
		Unit:         res.Unit,
		LoadAmount:   res.LoadAmount,
		Pieces:       res.Pieces,
		Remark:       p.Remark,
	}
}

// stamp assigns created_at and derives shift and time bucket from the
// governing wall clock. CreatedAt is stored as UTC.
func (s *Service) stamp(rec *model.ArrivalRecord, bucket string) {
	now := s.now().In(s.loc)

	shift := model.ShiftEarly
	if now.Hour() >= s.shiftCutoffHour {
		shift = model.ShiftLate
	}
	if bucket == "" {
		bucket = strconv.Itoa(now.Hour())
	}

	rec.TimeBucket = bucket
	rec.Shift = shift
	rec.CreatedAt = now.UTC()
}

// CheckDuplicate is the read-only advisory mirror of the ingest warning.
func (s *Service) CheckDuplicate(ctx context.Context, dock int) (*DuplicateWarning, error) {
	prev, err := s.store.FindLastDockRecord(ctx, dock)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	elapsed := s.now().UTC().Sub(prev.CreatedAt)
	if elapsed >= s.duplicateThreshold {
		return nil, nil
	}
	return &DuplicateWarning{
		PriorRecordID:  prev.ID,
		PriorPlate:     prev.VehiclePlate,
		ElapsedMinutes: int(elapsed.Minutes()),
	}, nil
}

// occupancyMinutes is the whole-minute dwell time between consecutive
// arrivals, clamped at zero against skewed clocks.
func occupancyMinutes(prev, next time.Time) int {
	minutes := int(next.Sub(prev).Seconds() / 60)
	if minutes < 0 {
		minutes = 0
	}
	return minutes
}
