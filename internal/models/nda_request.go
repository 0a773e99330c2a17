package models

import (
	"time"
)

// NDARequest is a solicitation for access to a protected item. While the request is
// pending or approved ActiveKey holds "<item>:<requester>"; the unique index on it
// keeps at most one open request per pair.
type NDARequest struct {
	BaseModel

	ProtectedItemID    string     `gorm:"type:varchar(64);not null;index:idx_nda_requests_pair,priority:1" json:"protected_item_id"`
	RequesterID        string     `gorm:"type:varchar(64);not null;index:idx_nda_requests_pair,priority:2" json:"requester_id"`
	OwnerID            string     `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Status             string     `gorm:"type:varchar(16);not null;index" json:"status"`
	NDAType            string     `gorm:"column:nda_type;type:varchar(32);not null" json:"nda_type"`
	RequestedAccess    string     `gorm:"type:varchar(16);not null" json:"requested_access"`
	RequestMessage     string     `gorm:"type:text" json:"request_message,omitempty"`
	CustomTerms        string     `gorm:"type:text" json:"custom_terms,omitempty"`
	RejectionReason    string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	SuggestAlternative bool       `gorm:"default:false" json:"suggest_alternative"`
	RequestedAt        time.Time  `gorm:"not null" json:"requested_at"`
	RespondedAt        *time.Time `json:"responded_at,omitempty"`
	ExpiresAt          *time.Time `gorm:"index" json:"expires_at,omitempty"`
	ActiveKey          *string    `gorm:"type:varchar(160);uniqueIndex" json:"-"`
}

// TableName pins the logical table name.
func (NDARequest) TableName() string { return "nda_requests" }

// RequestActiveKey builds the uniqueness key for an open request.
func RequestActiveKey(itemID, requesterID string) *string {
	key := itemID + ":" + requesterID
	return &key
}
