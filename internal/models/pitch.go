package models

// Pitch is the protected item whose material is gated behind an NDA. The engine only
// reads it to resolve ownership.
type Pitch struct {
	BaseModel

	OwnerID     string `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	RequiresNDA bool   `gorm:"default:true" json:"requires_nda"`
}
