package model

import "time"

// Known vehicle type labels. Arbitrary labels are accepted as well; only
// these carry classification defaults.
const (
	VehicleType26ft = "26ft"
	VehicleType53ft = "53ft"
	VehicleTypeCar  = "Car"
	VehicleTypeVan  = "Van"
)

// Shift labels derived from the arrival hour.
const (
	ShiftEarly = "early"
	ShiftLate  = "late"
)

// DockOccupying reports whether a vehicle type holds a numbered dock until
// the next arrival. Car and Van unload without taking a dock.
func DockOccupying(vehicleType string) bool {
	return vehicleType != VehicleTypeCar && vehicleType != VehicleTypeVan
}

// ArrivalRecord is one vehicle's dock event. CreatedAt is stored in UTC and
// never mutated; DurationMinutes is nil while the record is the open
// occupant of its dock and is set exactly once, when the next dock-occupying
// vehicle arrives at the same dock.
type ArrivalRecord struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	DockNumber      *int      `gorm:"index" json:"dock_number"`
	VehicleType     string    `gorm:"size:64;not null;index" json:"vehicle_type"`
	VehiclePlate    string    `gorm:"size:64" json:"vehicle_plate"`
	Unit            string    `gorm:"size:32" json:"unit"`
	LoadAmount      int       `json:"load_amount"`
	Pieces          int       `json:"pieces"`
	TimeBucket      string    `gorm:"size:16" json:"time_bucket"`
	Shift           string    `gorm:"size:16" json:"shift"`
	Remark          string    `gorm:"size:512" json:"remark"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
	DurationMinutes *int      `json:"duration_minutes"`
}

// IsOpen reports whether this record is still the open occupant of its dock.
func (r *ArrivalRecord) IsOpen() bool {
	return r.DurationMinutes == nil
}
