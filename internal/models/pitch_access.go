package models

import "time"

// PitchAccess is the materialised access grant for a subject on a protected item.
// It is a projection of NDA state and can always be rebuilt from the ndas table.
type PitchAccess struct {
	SubjectID       string     `gorm:"primaryKey;type:varchar(64)" json:"subject_id"`
	ProtectedItemID string     `gorm:"primaryKey;type:varchar(64)" json:"protected_item_id"`
	AccessLevel     string     `gorm:"type:varchar(16);not null" json:"access_level"`
	GrantedVia      string     `gorm:"type:varchar(36);not null;index" json:"granted_via"`
	GrantedAt       time.Time  `gorm:"not null" json:"granted_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// TableName pins the logical table name.
func (PitchAccess) TableName() string { return "pitch_access" }
