package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/metrics"
)

// AccessGrantManager owns the pitch_access projection. grant and revoke run inside the
// transaction of the NDA transition that causes them; nothing outside this package can
// call them.
type AccessGrantManager struct {
	db    *gorm.DB
	clock func() time.Time
}

func (m *AccessGrantManager) grant(tx *gorm.DB, subjectID, itemID, accessLevel, grantedVia string, grantedAt time.Time, expiresAt *time.Time) error {
	row := models.PitchAccess{
		SubjectID:       subjectID,
		ProtectedItemID: itemID,
		AccessLevel:     accessLevel,
		GrantedVia:      grantedVia,
		GrantedAt:       grantedAt,
		ExpiresAt:       expiresAt,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "protected_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_level", "granted_via", "granted_at", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// revoke drops the grant only while it is still backed by grantedVia. A later NDA for the
// same pair may have replaced it, and that grant must survive the old NDA's end.
func (m *AccessGrantManager) revoke(tx *gorm.DB, subjectID, itemID, grantedVia string) error {
	err := tx.Where("subject_id = ? AND protected_item_id = ? AND granted_via = ?", subjectID, itemID, grantedVia).
		Delete(&models.PitchAccess{}).Error
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// HasAccess reports whether subjectID may view itemID right now. The grant row is not
// trusted on its own: its expiry and the status of the NDA behind it are re-checked so a
// grant the sweeper has not reached yet is still refused.
func (m *AccessGrantManager) HasAccess(ctx context.Context, subjectID, itemID string) (bool, error) {
	ok, err := m.hasAccess(ensureContext(ctx), subjectID, itemID)
	switch {
	case err != nil:
		metrics.AccessChecks.WithLabelValues("error").Inc()
	case ok:
		metrics.AccessChecks.WithLabelValues("allow").Inc()
	default:
		metrics.AccessChecks.WithLabelValues("deny").Inc()
	}
	return ok, err
}

func (m *AccessGrantManager) hasAccess(ctx context.Context, subjectID, itemID string) (bool, error) {
	if subjectID == "" || itemID == "" {
		return false, nil
	}

	var grant models.PitchAccess
	err := m.db.WithContext(ctx).
		Where("subject_id = ? AND protected_item_id = ?", subjectID, itemID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence(err)
	}

	now := m.clock()
	if grant.ExpiresAt != nil && !grant.ExpiresAt.After(now) {
		return false, nil
	}

	var nda models.NDA
	err = m.db.WithContext(ctx).
		Select("id", "status", "signer_id", "protected_item_id", "expires_at").
		Where("id = ?", grant.GrantedVia).
		First(&nda).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence(err)
	}

	return ndaGrantsAccess(nda, subjectID, itemID, now), nil
}

// Rebuild discards every grant and derives them again from NDA state. It returns the
// number of grants written.
func (m *AccessGrantManager) Rebuild(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	now := m.clock()
	written := 0

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PitchAccess{}).Error; err != nil {
			return err
		}

		// Row locks keep a concurrent sweep or revocation from committing between the
		// read and the upsert. SQLite serialises on its single connection instead.
		var batch []models.NDA
		result := tx.Model(&models.NDA{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status IN ?", []string{models.NDAStatusActive, models.NDAStatusSigned}).
			Where("expires_at IS NULL OR expires_at > ?", now).
			FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
				for _, nda := range batch {
					grantedAt := now
					if nda.SignedAt != nil {
						grantedAt = *nda.SignedAt
					}
					if err := m.grant(tx, nda.SignerID, nda.ProtectedItemID, nda.AccessLevel, nda.ID, grantedAt, nda.ExpiresAt); err != nil {
						return err
					}
					written++
				}
				return nil
			})
		return result.Error
	})
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	return written, nil
}

func ndaGrantsAccess(nda models.NDA, subjectID, itemID string, now time.Time) bool {
	if !IsLiveNDA(nda.Status) {
		return false
	}
	if nda.SignerID != subjectID || nda.ProtectedItemID != itemID {
		return false
	}
	return nda.ExpiresAt == nil || nda.ExpiresAt.After(now)
}
