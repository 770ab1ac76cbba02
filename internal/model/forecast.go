package model

import "time"

// PickupForecast is the expected inbound piece count for one calendar date,
// entered ahead of time and later compared against actuals.
type PickupForecast struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	ForecastDate string    `gorm:"size:10;uniqueIndex;not null" json:"forecast_date"` // YYYY-MM-DD
	Amount       int       `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
