package services

import (
	"context"
	"strings"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

// ItemStatus is the caller's view of their NDA position on one protected item.
type ItemStatus struct {
	ProtectedItemID string             `json:"protected_item_id"`
	IsOwner         bool               `json:"is_owner"`
	HasAccess       bool               `json:"has_access"`
	CanRequest      bool               `json:"can_request"`
	Request         *models.NDARequest `json:"request,omitempty"`
	NDA             *models.NDA        `json:"nda,omitempty"`
}

// Status reports whether actorID can view itemID along with their latest request and NDA.
func (e *Engine) Status(ctx context.Context, actorID, itemID string) (*ItemStatus, error) {
	ctx = ensureContext(ctx)
	actorID = strings.TrimSpace(actorID)
	itemID = strings.TrimSpace(itemID)
	if actorID == "" {
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}

	ownerID, err := e.items.OwnerOf(ctx, itemID)
	if err != nil {
		return nil, err
	}

	status := &ItemStatus{ProtectedItemID: itemID}
	if ownerID == actorID {
		status.IsOwner = true
		status.HasAccess = true
		return status, nil
	}

	var requests []models.NDARequest
	if err := e.db.WithContext(ctx).
		Where("protected_item_id = ? AND requester_id = ?", itemID, actorID).
		Order("requested_at DESC").
		Limit(1).
		Find(&requests).Error; err != nil {
		return nil, apperrors.Persistence(err)
	}
	if len(requests) > 0 {
		status.Request = &requests[0]
	}

	var ndas []models.NDA
	if err := e.db.WithContext(ctx).
		Where("protected_item_id = ? AND signer_id = ?", itemID, actorID).
		Order("created_at DESC").
		Limit(1).
		Find(&ndas).Error; err != nil {
		return nil, apperrors.Persistence(err)
	}
	if len(ndas) > 0 {
		status.NDA = &ndas[0]
	}

	hasAccess, err := e.grants.HasAccess(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	status.HasAccess = hasAccess

	now := e.now()
	openRequest := status.Request != nil && IsOpenRequest(status.Request.Status) &&
		(status.Request.ExpiresAt == nil || status.Request.ExpiresAt.After(now))
	status.CanRequest = !hasAccess && !openRequest
	return status, nil
}
