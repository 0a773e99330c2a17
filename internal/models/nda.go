package models

import (
	"time"

	"gorm.io/datatypes"
)

// NDA is the agreement produced when an owner approves a request. Rows are never deleted.
type NDA struct {
	BaseModel

	RequestID        string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"request_id"`
	ProtectedItemID  string         `gorm:"type:varchar(64);not null;index:idx_ndas_signer_item,priority:2" json:"protected_item_id"`
	OwnerID          string         `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	SignerID         string         `gorm:"type:varchar(64);not null;index:idx_ndas_signer_item,priority:1" json:"signer_id"`
	Status           string         `gorm:"type:varchar(16);not null;index:idx_ndas_status_expiry,priority:1" json:"status"`
	NDAType          string         `gorm:"column:nda_type;type:varchar(32);not null" json:"nda_type"`
	AccessLevel      string         `gorm:"type:varchar(16);not null" json:"access_level"`
	AccessGranted    bool           `gorm:"default:false" json:"access_granted"`
	CustomTerms      string         `gorm:"type:text" json:"custom_terms,omitempty"`
	WatermarkEnabled bool           `gorm:"default:false" json:"watermark_enabled"`
	WatermarkConfig  datatypes.JSON `json:"watermark_config,omitempty"`
	DownloadEnabled  bool           `gorm:"default:false" json:"download_enabled"`

	SignatureHash string     `gorm:"type:varchar(160)" json:"signature_hash,omitempty"`
	SignerName    string     `gorm:"type:varchar(255)" json:"signer_name,omitempty"`
	SignerTitle   string     `gorm:"type:varchar(255)" json:"signer_title,omitempty"`
	SignerCompany string     `gorm:"type:varchar(255)" json:"signer_company,omitempty"`
	SignerIP      string     `gorm:"column:signer_ip;type:varchar(64)" json:"-"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`

	ExpiresAt        *time.Time `gorm:"index:idx_ndas_status_expiry,priority:2" json:"expires_at,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedBy        string     `gorm:"type:varchar(64)" json:"revoked_by,omitempty"`
	RevocationReason string     `gorm:"type:text" json:"revocation_reason,omitempty"`
}

// TableName pins the logical table name.
func (NDA) TableName() string { return "ndas" }
