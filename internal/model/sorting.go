package model

import "time"

// SortingRecord counts pieces sorted during one time bucket.
type SortingRecord struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SortingDate string    `gorm:"size:10;not null;index" json:"sorting_date"` // YYYY-MM-DD
	TimeBucket  string    `gorm:"size:16" json:"time_bucket"`
	Pieces      int       `gorm:"not null" json:"pieces"`
	Remark      string    `gorm:"size:512" json:"remark"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
