// Package store is the persistence boundary. The rest of the application
// talks to the Store interface only; the gorm implementation lives here so
// handlers and the ledger can be tested against fakes or an in-memory
// database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dock-stats-backend/internal/model"
)

// ErrNotFound is returned when a point lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write raced with another writer on the
// same dock (the previous open occupant was closed underneath us). The
// caller retries the whole operation from its initial read.
var ErrConflict = errors.New("concurrent writer closed the open occupant")

// Store defines all database operations the application needs.
type Store interface {
	// CloseAndInsert atomically sets the duration of the dock's previous
	// open occupant (when prevID > 0) and inserts rec as the new open
	// record. Returns ErrConflict if the previous occupant was already
	// closed by a racing writer.
	CloseAndInsert(ctx context.Context, prevID int64, minutes int, rec *model.ArrivalRecord) (int64, error)
	InsertArrival(ctx context.Context, rec *model.ArrivalRecord) (int64, error)
	UpdateDuration(ctx context.Context, id int64, minutes int) error
	FindLastDockRecord(ctx context.Context, dockNumber int) (*model.ArrivalRecord, error)
	ScanByCreatedAt(ctx context.Context, start, end time.Time) ([]model.ArrivalRecord, error)
	ScanAllArrivals(ctx context.Context) ([]model.ArrivalRecord, error)

	GetArrival(ctx context.Context, id int64) (*model.ArrivalRecord, error)
	UpdateArrival(ctx context.Context, rec *model.ArrivalRecord) error
	DeleteArrival(ctx context.Context, id int64) error

	CreateSorting(ctx context.Context, rec *model.SortingRecord) (int64, error)
	ListSortingByDate(ctx context.Context, date string) ([]model.SortingRecord, error)
	DeleteSorting(ctx context.Context, id int64) error

	UpsertForecast(ctx context.Context, rec *model.PickupForecast) error
	ListForecasts(ctx context.Context) ([]model.PickupForecast, error)

	AppendOperationLog(ctx context.Context, entry *model.OperationLog) error
	ListOperationLogs(ctx context.Context, limit int) ([]model.OperationLog, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// CloseAndInsert is the atomic unit of the occupancy ledger: closing the
// previous occupant and inserting the new open record either both happen or
// neither does. The guarded UPDATE (duration_minutes IS NULL) detects a
// racing writer that closed the same occupant first.
func (s *gormStore) CloseAndInsert(ctx context.Context, prevID int64, minutes int, rec *model.ArrivalRecord) (int64, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prevID > 0 {
			res := tx.Model(&model.ArrivalRecord{}).
				Where("id = ? AND duration_minutes IS NULL", prevID).
				Update("duration_minutes", minutes)
			if res.Error != nil {
				return fmt.Errorf("failed to close occupant %d: %w", prevID, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert arrival: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *gormStore) InsertArrival(ctx context.Context, rec *model.ArrivalRecord) (int64, error) {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("failed to insert arrival: %w", err)
	}
	return rec.ID, nil
}

// UpdateDuration closes a record directly. Used by administrative tooling;
// the ledger path goes through CloseAndInsert.
func (s *gormStore) UpdateDuration(ctx context.Context, id int64, minutes int) error {
	res := s.db.WithContext(ctx).Model(&model.ArrivalRecord{}).
		Where("id = ? AND duration_minutes IS NULL", id).
		Update("duration_minutes", minutes)
	if res.Error != nil {
		return fmt.Errorf("failed to update duration for record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("record %d: %w", id, ErrConflict)
	}
	return nil
}

// FindLastDockRecord returns the most recent dock-occupying arrival at the
// given dock, open or closed, ordered by arrival time. Car and Van rows are
// ignored: they never hold a dock.
func (s *gormStore) FindLastDockRecord(ctx context.Context, dockNumber int) (*model.ArrivalRecord, error) {
	var rec model.ArrivalRecord
	err := s.db.WithContext(ctx).
		Where("dock_number = ? AND vehicle_type NOT IN ?", dockNumber,
			[]string{model.VehicleTypeCar, model.VehicleTypeVan}).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last record for dock %d: %w", dockNumber, err)
	}
	return &rec, nil
}

// ScanByCreatedAt returns all arrivals in the half-open [start, end)
// interval, ordered by arrival time.
func (s *gormStore) ScanByCreatedAt(ctx context.Context, start, end time.Time) ([]model.ArrivalRecord, error) {
	var records []model.ArrivalRecord
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan arrivals: %w", err)
	}
	return records, nil
}

// ScanAllArrivals returns every arrival ordered by arrival time. The
// multi-day trend views read the whole table.
func (s *gormStore) ScanAllArrivals(ctx context.Context) ([]model.ArrivalRecord, error) {
	var records []model.ArrivalRecord
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan arrivals: %w", err)
	}
	return records, nil
}

func (s *gormStore) GetArrival(ctx context.Context, id int64) (*model.ArrivalRecord, error) {
	var rec model.ArrivalRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("arrival %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load arrival %d: %w", id, err)
	}
	return &rec, nil
}

// UpdateArrival rewrites the editable columns of an existing record.
// CreatedAt and DurationMinutes are ledger-owned and never touched here.
func (s *gormStore) UpdateArrival(ctx context.Context, rec *model.ArrivalRecord) error {
	res := s.db.WithContext(ctx).Model(&model.ArrivalRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"dock_number":   rec.DockNumber,
			"vehicle_type":  rec.VehicleType,
			"vehicle_plate": rec.VehiclePlate,
			"unit":          rec.Unit,
			"load_amount":   rec.LoadAmount,
			"pieces":        rec.Pieces,
			"time_bucket":   rec.TimeBucket,
			"shift":         rec.Shift,
			"remark":        rec.Remark,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update arrival %d: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("arrival %d: %w", rec.ID, ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteArrival(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.ArrivalRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete arrival %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("arrival %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) CreateSorting(ctx context.Context, rec *model.SortingRecord) (int64, error) {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("failed to insert sorting record: %w", err)
	}
	return rec.ID, nil
}

func (s *gormStore) ListSortingByDate(ctx context.Context, date string) ([]model.SortingRecord, error) {
	var records []model.SortingRecord
	err := s.db.WithContext(ctx).
		Where("sorting_date = ?", date).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sorting records for %s: %w", date, err)
	}
	return records, nil
}

func (s *gormStore) DeleteSorting(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.SortingRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete sorting record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sorting record %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) UpsertForecast(ctx context.Context, rec *model.PickupForecast) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "forecast_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert forecast for %s: %w", rec.ForecastDate, err)
	}
	return nil
}

func (s *gormStore) ListForecasts(ctx context.Context) ([]model.PickupForecast, error) {
	var records []model.PickupForecast
	err := s.db.WithContext(ctx).Order("forecast_date ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	return records, nil
}

func (s *gormStore) AppendOperationLog(ctx context.Context, entry *model.OperationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append operation log: %w", err)
	}
	return nil
}

func (s *gormStore) ListOperationLogs(ctx context.Context, limit int) ([]model.OperationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []model.OperationLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}
	return entries, nil
}
