package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

// AuditEntry captures a single lifecycle transition to persist.
type AuditEntry struct {
	NDAID     string
	RequestID string
	ActorID   string
	Action    string
	Metadata  map[string]any
}

// AuditTrail appends lifecycle facts to nda_audit_log. Entries are written inside the
// transaction of the transition they describe and are never updated or deleted.
type AuditTrail struct {
	db      *gorm.DB
	enabled bool
}

// Enabled reports whether the auditing capability is switched on.
func (a *AuditTrail) Enabled() bool {
	return a.enabled
}

func (a *AuditTrail) record(tx *gorm.DB, entry AuditEntry, at time.Time) error {
	if !a.enabled {
		return nil
	}

	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return errors.New("audit trail: action is required")
	}
	actor := strings.TrimSpace(entry.ActorID)
	if actor == "" {
		return errors.New("audit trail: actor is required")
	}
	if entry.NDAID == "" && entry.RequestID == "" {
		return errors.New("audit trail: nda or request id is required")
	}

	metadata, err := encodeJSON(entry.Metadata)
	if err != nil {
		return fmt.Errorf("audit trail: marshal metadata: %w", err)
	}

	row := models.NDAAuditLog{
		NDAID:        stringPtr(entry.NDAID),
		NDARequestID: stringPtr(entry.RequestID),
		ActorID:      actor,
		Action:       action,
		Metadata:     metadata,
		CreatedAt:    at,
	}
	if err := tx.Create(&row).Error; err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// ListForNDA returns the entries of an NDA and of the request it was approved from, oldest first.
// Only the NDA's owner and signer may read them.
func (a *AuditTrail) ListForNDA(ctx context.Context, actorID, ndaID string) ([]models.NDAAuditLog, error) {
	ctx = ensureContext(ctx)

	var nda models.NDA
	if err := a.db.WithContext(ctx).
		Select("id", "request_id", "owner_id", "signer_id").
		Where("id = ?", ndaID).
		First(&nda).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFoundOrUnauthorized
		}
		return nil, apperrors.Persistence(err)
	}
	if actorID == "" || (actorID != nda.OwnerID && actorID != nda.SignerID) {
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}

	return a.list(ctx, a.db.WithContext(ctx).Where("nda_id = ? OR nda_request_id = ?", nda.ID, nda.RequestID))
}

// ListForRequest returns the entries of a request, visible to its owner and requester.
func (a *AuditTrail) ListForRequest(ctx context.Context, actorID, requestID string) ([]models.NDAAuditLog, error) {
	ctx = ensureContext(ctx)

	var request models.NDARequest
	if err := a.db.WithContext(ctx).
		Select("id", "owner_id", "requester_id").
		Where("id = ?", requestID).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFoundOrUnauthorized
		}
		return nil, apperrors.Persistence(err)
	}
	if actorID == "" || (actorID != request.OwnerID && actorID != request.RequesterID) {
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}

	return a.list(ctx, a.db.WithContext(ctx).Where("nda_request_id = ?", request.ID))
}

func (a *AuditTrail) list(_ context.Context, query *gorm.DB) ([]models.NDAAuditLog, error) {
	var rows []models.NDAAuditLog
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Persistence(err)
	}
	return rows, nil
}
