package model

import "time"

// Operation types recorded in the audit log.
const (
	OperationEdit   = "edit"
	OperationDelete = "delete"
)

// OperationLog is an audit entry for administrative edits and deletions of
// arrival records. OldData and NewData hold JSON snapshots of persisted
// columns only.
type OperationLog struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	OperationType string    `gorm:"size:16;not null" json:"operation_type"`
	TableName     string    `gorm:"size:64;not null" json:"table_name"`
	RecordID      int64     `gorm:"not null;index" json:"record_id"`
	OldData       string    `gorm:"type:text" json:"old_data"`
	NewData       string    `gorm:"type:text" json:"new_data"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
