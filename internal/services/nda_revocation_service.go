package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/validator"
)

// RevokeInput carries an owner's early termination of an NDA.
type RevokeInput struct {
	OwnerID string `json:"owner_id" validate:"required,notblank"`
	NDAID   string `json:"nda_id" validate:"required,notblank"`
	Reason  string `json:"reason" validate:"required,notblank,max=1000"`
}

// RevocationAuthority terminates active NDAs on the owner's behalf.
type RevocationAuthority struct {
	*core
}

// Revoke ends an active NDA and removes the access it granted.
func (s *RevocationAuthority) Revoke(ctx context.Context, in RevokeInput) (*models.NDA, error) {
	ctx = ensureContext(ctx)
	const action = models.AuditNDARevoked

	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.NDAID = strings.TrimSpace(in.NDAID)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validator.Check(in); err != nil {
		observe(action, err)
		return nil, err
	}

	var nda models.NDA
	err := s.db.WithContext(ctx).Where("id = ?", in.NDAID).First(&nda).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && nda.OwnerID != in.OwnerID) {
		observe(action, apperrors.ErrNotFoundOrUnauthorized)
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return nil, fail(action, err)
	}
	if !CanTransitionNDA(nda.Status, models.NDAStatusRevoked) {
		return nil, fail(action, apperrors.ErrStateConflict)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionNDA(tx, nda.ID, nda.Status, models.NDAStatusRevoked, map[string]any{
			"revoked_at":        now,
			"revoked_by":        in.OwnerID,
			"revocation_reason": in.Reason,
		}); err != nil {
			return err
		}
		if err := s.grants.revoke(tx, nda.SignerID, nda.ProtectedItemID, nda.ID); err != nil {
			return err
		}
		return s.audit.record(tx, AuditEntry{
			NDAID:     nda.ID,
			RequestID: nda.RequestID,
			ActorID:   in.OwnerID,
			Action:    action,
			Metadata:  map[string]any{"reason": in.Reason, "previous_status": nda.Status},
		}, now)
	})
	if err != nil {
		return nil, fail(action, err)
	}
	observe(action, nil)

	nda.Status = models.NDAStatusRevoked
	nda.AccessGranted = false
	nda.RevokedAt = &now
	nda.RevokedBy = in.OwnerID
	nda.RevocationReason = in.Reason

	payload := ndaPayload(nda)
	payload["reason"] = in.Reason
	s.notify(ctx, nda.SignerID, EventRevoked, payload)
	s.log.Info("nda revoked", zap.String("nda_id", nda.ID), zap.String("owner_id", in.OwnerID))
	return &nda, nil
}
