package services

import (
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

var requestTransitions = map[string][]string{
	models.RequestStatusPending:  {models.RequestStatusApproved, models.RequestStatusRejected, models.RequestStatusExpired},
	models.RequestStatusApproved: {models.RequestStatusSigned, models.RequestStatusExpired},
}

// NDA rows are created approved. Signing moves straight to active; signed is only
// accepted as a source state for rows written before the two labels were merged.
var ndaTransitions = map[string][]string{
	models.NDAStatusApproved: {models.NDAStatusActive, models.NDAStatusExpired},
	models.NDAStatusSigned:   {models.NDAStatusActive, models.NDAStatusExpired, models.NDAStatusRevoked},
	models.NDAStatusActive:   {models.NDAStatusExpired, models.NDAStatusRevoked},
}

// CanTransitionRequest reports whether a request may move from one status to another.
func CanTransitionRequest(from, to string) bool {
	return allowed(requestTransitions, from, to)
}

// CanTransitionNDA reports whether an NDA may move from one status to another.
func CanTransitionNDA(from, to string) bool {
	return allowed(ndaTransitions, from, to)
}

// IsOpenRequest reports whether the request still blocks a new one for the same pair.
func IsOpenRequest(status string) bool {
	return status == models.RequestStatusPending || status == models.RequestStatusApproved
}

// IsLiveNDA reports whether the status carries access, ignoring expiry.
func IsLiveNDA(status string) bool {
	return status == models.NDAStatusActive || status == models.NDAStatusSigned
}

func allowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transitionRequest moves a request from -> to in a single conditional update. The
// active key is cleared as soon as the request stops being open.
func transitionRequest(tx *gorm.DB, id, from, to string, updates map[string]any) error {
	if !CanTransitionRequest(from, to) {
		return apperrors.ErrStateConflict
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	if !IsOpenRequest(to) {
		updates["active_key"] = nil
	}
	return conditionalUpdate(tx, &models.NDARequest{}, id, from, updates)
}

func transitionNDA(tx *gorm.DB, id, from, to string, updates map[string]any) error {
	if !CanTransitionNDA(from, to) {
		return apperrors.ErrStateConflict
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	if !IsLiveNDA(to) {
		updates["access_granted"] = false
	}
	return conditionalUpdate(tx, &models.NDA{}, id, from, updates)
}

// conditionalUpdate is the compare-and-swap every transition goes through:
// UPDATE ... WHERE id = ? AND status = ?. Zero affected rows means another writer won.
func conditionalUpdate(tx *gorm.DB, model any, id, from string, updates map[string]any) error {
	result := tx.Model(model).Where("id = ? AND status = ?", id, from).Updates(updates)
	if result.Error != nil {
		return apperrors.Persistence(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrStateConflict
	}
	return nil
}
