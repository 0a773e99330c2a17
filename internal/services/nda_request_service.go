package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/validator"
)

// Notification event types emitted by the engine.
const (
	EventRequested      = "nda.requested"
	EventApproved       = "nda.approved"
	EventRejected       = "nda.rejected"
	EventSigned         = "nda.signed"
	EventRevoked        = "nda.revoked"
	EventExpired        = "nda.expired"
	EventRequestExpired = "nda.request_expired"
)

const listLimit = 100

// RequestAccessInput describes a requester asking for access to a protected item.
type RequestAccessInput struct {
	RequesterID     string `json:"requester_id" validate:"required,notblank,max=64"`
	ProtectedItemID string `json:"protected_item_id" validate:"required,notblank,max=64"`
	NDAType         string `json:"nda_type" validate:"omitempty,oneof=standard mutual custom confidentiality"`
	RequestedAccess string `json:"requested_access" validate:"omitempty,oneof=basic standard full"`
	Message         string `json:"message" validate:"max=2000"`
	CustomTerms     string `json:"custom_terms" validate:"max=20000"`
	ExpirationDays  int    `json:"expiration_days" validate:"min=0"`
}

func (in *RequestAccessInput) normalise() {
	in.RequesterID = strings.TrimSpace(in.RequesterID)
	in.ProtectedItemID = strings.TrimSpace(in.ProtectedItemID)
	in.NDAType = strings.ToLower(strings.TrimSpace(defaultIfEmpty(in.NDAType, models.NDATypeStandard)))
	in.RequestedAccess = strings.ToLower(strings.TrimSpace(defaultIfEmpty(in.RequestedAccess, models.AccessLevelBasic)))
	in.Message = strings.TrimSpace(in.Message)
	in.CustomTerms = strings.TrimSpace(in.CustomTerms)
}

// RequestIntake validates and records new NDA requests.
type RequestIntake struct {
	*core
}

// RequestAccess creates a pending request for the item. At most one open request may exist
// per (item, requester); the unique active_key column guarantees it even when two calls race
// past the pre-checks.
func (s *RequestIntake) RequestAccess(ctx context.Context, in RequestAccessInput) (*models.NDARequest, error) {
	ctx = ensureContext(ctx)
	const action = models.AuditRequestCreated

	in.normalise()
	if err := validator.Check(in); err != nil {
		observe(action, err)
		return nil, err
	}
	days, err := s.expirationDays(in.ExpirationDays)
	if err != nil {
		observe(action, err)
		return nil, err
	}

	ownerID, err := s.items.OwnerOf(ctx, in.ProtectedItemID)
	if err != nil {
		return nil, fail(action, err)
	}
	if ownerID == in.RequesterID {
		observe(action, apperrors.ErrSelfRequest)
		return nil, apperrors.ErrSelfRequest
	}

	now := s.now()
	expiresAt := now.AddDate(0, 0, days)
	request := models.NDARequest{
		ProtectedItemID: in.ProtectedItemID,
		RequesterID:     in.RequesterID,
		OwnerID:         ownerID,
		Status:          models.RequestStatusPending,
		NDAType:         in.NDAType,
		RequestedAccess: in.RequestedAccess,
		RequestMessage:  in.Message,
		CustomTerms:     in.CustomTerms,
		RequestedAt:     now,
		ExpiresAt:       &expiresAt,
		ActiveKey:       models.RequestActiveKey(in.ProtectedItemID, in.RequesterID),
	}

	var expired []models.NDARequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		granted, err := s.holdsLiveNDA(tx, in.RequesterID, in.ProtectedItemID, now)
		if err != nil {
			return err
		}
		if granted {
			return apperrors.ErrAlreadyGranted
		}

		var open []models.NDARequest
		if err := tx.Where("protected_item_id = ? AND requester_id = ? AND status IN ?",
			in.ProtectedItemID, in.RequesterID,
			[]string{models.RequestStatusPending, models.RequestStatusApproved},
		).Find(&open).Error; err != nil {
			return err
		}
		for _, existing := range open {
			// An open request past its window no longer blocks; close it here
			// rather than waiting for the next sweep.
			if existing.ExpiresAt == nil || existing.ExpiresAt.After(now) {
				return apperrors.ErrDuplicateRequest
			}
			if err := s.expireRequest(tx, existing, now); err != nil {
				return err
			}
			existing.Status = models.RequestStatusExpired
			expired = append(expired, existing)
		}

		if err := tx.Create(&request).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrDuplicateRequest
			}
			return err
		}

		return s.audit.record(tx, AuditEntry{
			RequestID: request.ID,
			ActorID:   in.RequesterID,
			Action:    action,
			Metadata: map[string]any{
				"protected_item_id": request.ProtectedItemID,
				"nda_type":          request.NDAType,
				"requested_access":  request.RequestedAccess,
				"expires_at":        expiresAt,
			},
		}, now)
	})
	if err != nil {
		return nil, fail(action, err)
	}
	observe(action, nil)

	for _, stale := range expired {
		s.notify(ctx, stale.RequesterID, EventRequestExpired, requestPayload(stale))
	}
	s.notify(ctx, ownerID, EventRequested, requestPayload(request))
	s.log.Debug("nda requested",
		zap.String("request_id", request.ID),
		zap.String("protected_item_id", request.ProtectedItemID),
		zap.String("requester_id", request.RequesterID),
	)
	return &request, nil
}

// ListIncoming returns requests addressed to the owner, newest first.
func (s *RequestIntake) ListIncoming(ctx context.Context, ownerID, status string) ([]models.NDARequest, error) {
	return s.list(ctx, "owner_id = ?", ownerID, status)
}

// ListOutgoing returns requests made by the requester, newest first.
func (s *RequestIntake) ListOutgoing(ctx context.Context, requesterID, status string) ([]models.NDARequest, error) {
	return s.list(ctx, "requester_id = ?", requesterID, status)
}

func (s *RequestIntake) list(ctx context.Context, clause, actorID, status string) ([]models.NDARequest, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(actorID) == "" {
		return nil, apperrors.NewValidation(apperrors.FieldError{Field: "actor_id", Message: "actor id is required"})
	}

	query := s.db.WithContext(ctx).Where(clause, actorID)
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
		if !validRequestStatus(status) {
			return nil, apperrors.NewValidation(apperrors.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)})
		}
		query = query.Where("status = ?", status)
	}

	var rows []models.NDARequest
	if err := query.Order("requested_at DESC").Limit(listLimit).Find(&rows).Error; err != nil {
		return nil, apperrors.Persistence(err)
	}
	return rows, nil
}

func (s *RequestIntake) expirationDays(days int) (int, error) {
	if days == 0 {
		return s.cfg.DefaultExpirationDays, nil
	}
	if days < s.cfg.MinExpirationDays || days > s.cfg.MaxExpirationDays {
		return 0, apperrors.NewValidation(apperrors.FieldError{
			Field:   "expiration_days",
			Message: fmt.Sprintf("expiration days must be between %d and %d", s.cfg.MinExpirationDays, s.cfg.MaxExpirationDays),
		})
	}
	return days, nil
}

// holdsLiveNDA reports whether the subject already has an unexpired active NDA for the item.
func (c *core) holdsLiveNDA(tx *gorm.DB, subjectID, itemID string, now time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.NDA{}).
		Where("signer_id = ? AND protected_item_id = ?", subjectID, itemID).
		Where("status IN ?", []string{models.NDAStatusActive, models.NDAStatusSigned}).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	return count > 0, err
}

// expireRequest closes an open request whose window has passed. An approved request
// takes its unsigned NDA with it.
func (c *core) expireRequest(tx *gorm.DB, request models.NDARequest, now time.Time) error {
	if err := transitionRequest(tx, request.ID, request.Status, models.RequestStatusExpired, nil); err != nil {
		return err
	}

	entry := AuditEntry{
		RequestID: request.ID,
		ActorID:   models.SystemActorID,
		Action:    models.AuditRequestExpired,
		Metadata:  map[string]any{"previous_status": request.Status},
	}

	if request.Status == models.RequestStatusApproved {
		var nda models.NDA
		err := tx.Select("id", "status").
			Where("request_id = ? AND status = ?", request.ID, models.NDAStatusApproved).
			Limit(1).
			Find(&nda).Error
		if err != nil {
			return err
		}
		if nda.ID != "" {
			if err := transitionNDA(tx, nda.ID, models.NDAStatusApproved, models.NDAStatusExpired, nil); err != nil {
				return err
			}
			entry.NDAID = nda.ID
		}
	}

	return c.audit.record(tx, entry, now)
}

func validRequestStatus(status string) bool {
	switch status {
	case models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected,
		models.RequestStatusExpired, models.RequestStatusSigned:
		return true
	}
	return false
}

func requestPayload(request models.NDARequest) map[string]any {
	payload := map[string]any{
		"request_id":        request.ID,
		"protected_item_id": request.ProtectedItemID,
		"requester_id":      request.RequesterID,
		"status":            request.Status,
	}
	if request.ExpiresAt != nil {
		payload["expires_at"] = request.ExpiresAt
	}
	return payload
}
