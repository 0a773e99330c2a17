package models

import (
	"time"

	"gorm.io/datatypes"
)

// NDAAuditLog is an append-only record of a lifecycle transition. The auto-increment
// identifier gives a total insertion order that survives identical timestamps.
type NDAAuditLog struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	NDAID        *string        `gorm:"column:nda_id;type:varchar(36);index" json:"nda_id,omitempty"`
	NDARequestID *string        `gorm:"column:nda_request_id;type:varchar(36);index" json:"nda_request_id,omitempty"`
	ActorID      string         `gorm:"type:varchar(64);not null;index" json:"actor_id"`
	Action       string         `gorm:"type:varchar(32);not null;index" json:"action"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

// TableName pins the logical table name.
func (NDAAuditLog) TableName() string { return "nda_audit_log" }
