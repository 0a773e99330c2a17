package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

// ItemDirectory resolves the owner of a protected item.
type ItemDirectory interface {
	OwnerOf(ctx context.Context, itemID string) (string, error)
}

// PitchDirectory reads ownership from the pitches table.
type PitchDirectory struct {
	db *gorm.DB
}

// NewPitchDirectory constructs a PitchDirectory.
func NewPitchDirectory(db *gorm.DB) *PitchDirectory {
	return &PitchDirectory{db: db}
}

// OwnerOf returns the owner id of the pitch.
func (d *PitchDirectory) OwnerOf(ctx context.Context, itemID string) (string, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return "", apperrors.ErrNotFoundOrUnauthorized
	}

	var pitch models.Pitch
	err := d.db.WithContext(ensureContext(ctx)).
		Select("id", "owner_id").
		Where("id = ?", itemID).
		First(&pitch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFoundOrUnauthorized
		}
		return "", apperrors.Persistence(err)
	}
	return pitch.OwnerID, nil
}
