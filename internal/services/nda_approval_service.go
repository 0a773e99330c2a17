package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/internal/watermark"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/validator"
)

// ApproveInput carries the owner's approval decision.
type ApproveInput struct {
	OwnerID          string            `json:"owner_id" validate:"required,notblank"`
	RequestID        string            `json:"request_id" validate:"required,notblank"`
	AccessLevel      string            `json:"access_level" validate:"omitempty,oneof=basic standard full"`
	CustomTerms      string            `json:"custom_terms" validate:"max=20000"`
	WatermarkEnabled bool              `json:"watermark_enabled"`
	Watermark        watermark.Options `json:"-"`
	DownloadEnabled  bool              `json:"download_enabled"`
	ExpiresAt        *time.Time        `json:"expires_at"`
}

// RejectInput carries the owner's rejection.
type RejectInput struct {
	OwnerID            string `json:"owner_id" validate:"required,notblank"`
	RequestID          string `json:"request_id" validate:"required,notblank"`
	Reason             string `json:"reason" validate:"required,notblank,max=1000"`
	SuggestAlternative bool   `json:"suggest_alternative"`
}

// ApprovalAuthority lets an item owner resolve pending requests.
type ApprovalAuthority struct {
	*core
}

// Approve moves a pending request to approved and creates its NDA. The NDA does not grant
// access until it is signed.
func (s *ApprovalAuthority) Approve(ctx context.Context, in ApproveInput) (*models.NDA, error) {
	ctx = ensureContext(ctx)
	const action = models.AuditNDAApproved

	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.RequestID = strings.TrimSpace(in.RequestID)
	in.AccessLevel = strings.ToLower(strings.TrimSpace(in.AccessLevel))
	in.CustomTerms = strings.TrimSpace(in.CustomTerms)
	if err := validator.Check(in); err != nil {
		observe(action, err)
		return nil, err
	}

	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		err := apperrors.NewValidation(apperrors.FieldError{Field: "expires_at", Message: "expires at must be in the future"})
		observe(action, err)
		return nil, err
	}

	request, err := s.loadOwnedRequest(ctx, in.OwnerID, in.RequestID)
	if err != nil {
		return nil, fail(action, err)
	}
	if err := s.requireActionable(request, now); err != nil {
		return nil, fail(action, err)
	}

	nda := models.NDA{
		RequestID:       request.ID,
		ProtectedItemID: request.ProtectedItemID,
		OwnerID:         request.OwnerID,
		SignerID:        request.RequesterID,
		Status:          models.NDAStatusApproved,
		NDAType:         request.NDAType,
		AccessLevel:     defaultIfEmpty(in.AccessLevel, request.RequestedAccess),
		AccessGranted:   false,
		CustomTerms:     defaultIfEmpty(in.CustomTerms, request.CustomTerms),
		DownloadEnabled: in.DownloadEnabled && s.cfg.Capabilities.Downloads,
		ExpiresAt:       request.ExpiresAt,
	}
	if in.ExpiresAt != nil {
		expiresAt := in.ExpiresAt.UTC().Truncate(time.Microsecond)
		nda.ExpiresAt = &expiresAt
	}
	if in.WatermarkEnabled && s.cfg.Capabilities.Watermarking {
		cfg, err := watermark.Build(nda.SignerID, nda.ProtectedItemID, in.Watermark).JSON()
		if err != nil {
			return nil, fail(action, err)
		}
		nda.WatermarkEnabled = true
		nda.WatermarkConfig = cfg
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionRequest(tx, request.ID, models.RequestStatusPending, models.RequestStatusApproved, map[string]any{
			"responded_at": now,
		}); err != nil {
			return err
		}
		if err := tx.Create(&nda).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrStateConflict
			}
			return err
		}
		return s.audit.record(tx, AuditEntry{
			NDAID:     nda.ID,
			RequestID: request.ID,
			ActorID:   in.OwnerID,
			Action:    action,
			Metadata: map[string]any{
				"access_level":      nda.AccessLevel,
				"watermark_enabled": nda.WatermarkEnabled,
				"download_enabled":  nda.DownloadEnabled,
				"expires_at":        nda.ExpiresAt,
			},
		}, now)
	})
	if err != nil {
		return nil, fail(action, err)
	}
	observe(action, nil)

	s.notify(ctx, nda.SignerID, EventApproved, ndaPayload(nda))
	s.log.Debug("nda approved", zap.String("nda_id", nda.ID), zap.String("request_id", request.ID))
	return &nda, nil
}

// Reject closes a pending request with the owner's reason. No NDA is created.
func (s *ApprovalAuthority) Reject(ctx context.Context, in RejectInput) (*models.NDARequest, error) {
	ctx = ensureContext(ctx)
	const action = models.AuditNDARejected

	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.RequestID = strings.TrimSpace(in.RequestID)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validator.Check(in); err != nil {
		observe(action, err)
		return nil, err
	}

	now := s.now()
	request, err := s.loadOwnedRequest(ctx, in.OwnerID, in.RequestID)
	if err != nil {
		return nil, fail(action, err)
	}
	if err := s.requireActionable(request, now); err != nil {
		return nil, fail(action, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionRequest(tx, request.ID, models.RequestStatusPending, models.RequestStatusRejected, map[string]any{
			"rejection_reason":    in.Reason,
			"suggest_alternative": in.SuggestAlternative,
			"responded_at":        now,
		}); err != nil {
			return err
		}
		return s.audit.record(tx, AuditEntry{
			RequestID: request.ID,
			ActorID:   in.OwnerID,
			Action:    action,
			Metadata: map[string]any{
				"reason":              in.Reason,
				"suggest_alternative": in.SuggestAlternative,
			},
		}, now)
	})
	if err != nil {
		return nil, fail(action, err)
	}
	observe(action, nil)

	request.Status = models.RequestStatusRejected
	request.RejectionReason = in.Reason
	request.SuggestAlternative = in.SuggestAlternative
	request.RespondedAt = &now
	request.ActiveKey = nil

	payload := requestPayload(*request)
	payload["reason"] = in.Reason
	payload["suggest_alternative"] = in.SuggestAlternative
	s.notify(ctx, request.RequesterID, EventRejected, payload)
	return request, nil
}

// loadOwnedRequest hides requests owned by someone else behind the same error as a
// missing one.
func (s *ApprovalAuthority) loadOwnedRequest(ctx context.Context, ownerID, requestID string) (*models.NDARequest, error) {
	var request models.NDARequest
	err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if request.OwnerID != ownerID {
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}
	return &request, nil
}

// requireActionable rejects requests that were already resolved or whose window closed
// before the sweeper reached them.
func (s *ApprovalAuthority) requireActionable(request *models.NDARequest, now time.Time) error {
	if request.Status != models.RequestStatusPending {
		return apperrors.ErrStateConflict
	}
	if request.ExpiresAt != nil && !request.ExpiresAt.After(now) {
		return apperrors.ErrStateConflict.WithMessage("The NDA request has expired")
	}
	return nil
}

func ndaPayload(nda models.NDA) map[string]any {
	payload := map[string]any{
		"nda_id":            nda.ID,
		"request_id":        nda.RequestID,
		"protected_item_id": nda.ProtectedItemID,
		"status":            nda.Status,
		"access_level":      nda.AccessLevel,
	}
	if nda.ExpiresAt != nil {
		payload["expires_at"] = nda.ExpiresAt
	}
	return payload
}
