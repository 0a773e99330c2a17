package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/pkg/crypto"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/validator"
)

// SignInput carries the requester's signature of an approved NDA.
type SignInput struct {
	SignerID         string `json:"signer_id" validate:"required,notblank"`
	NDAID            string `json:"nda_id" validate:"required,notblank"`
	SignaturePayload string `json:"signature" validate:"required,max=262144"`
	FullName         string `json:"full_name" validate:"required,notblank,max=255"`
	Title            string `json:"title" validate:"max=255"`
	Company          string `json:"company" validate:"max=255"`
	IPAddress        string `json:"ip_address" validate:"omitempty,ip"`
	AcceptTerms      bool   `json:"accept_terms"`
}

// signatureClaims is the canonical document the signature hash covers. Field order is
// part of the format.
type signatureClaims struct {
	NDAID         string `json:"nda_id"`
	SignerID      string `json:"signer_id"`
	FullName      string `json:"full_name"`
	SignedAt      string `json:"signed_at"`
	PayloadDigest string `json:"payload_digest"`
}

// SignatureLedger records signatures and turns approved NDAs into live grants.
type SignatureLedger struct {
	*core
}

// Sign activates an approved NDA. The status change, the request supersession, the access
// grant and the audit entry commit together or not at all.
func (s *SignatureLedger) Sign(ctx context.Context, in SignInput) (*models.NDA, error) {
	ctx = ensureContext(ctx)
	const action = models.AuditNDASigned

	in.SignerID = strings.TrimSpace(in.SignerID)
	in.NDAID = strings.TrimSpace(in.NDAID)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.IPAddress = strings.TrimSpace(in.IPAddress)
	if err := validator.Check(in); err != nil {
		observe(action, err)
		return nil, err
	}
	if !in.AcceptTerms {
		observe(action, apperrors.ErrTermsNotAccepted)
		return nil, apperrors.ErrTermsNotAccepted
	}

	var nda models.NDA
	err := s.db.WithContext(ctx).Where("id = ?", in.NDAID).First(&nda).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && nda.SignerID != in.SignerID) {
		observe(action, apperrors.ErrNotFoundOrUnauthorized)
		return nil, apperrors.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return nil, fail(action, err)
	}

	now := s.now()
	if nda.Status != models.NDAStatusApproved {
		return nil, fail(action, apperrors.ErrStateConflict)
	}
	if nda.ExpiresAt != nil && !nda.ExpiresAt.After(now) {
		return nil, fail(action, apperrors.ErrStateConflict.WithMessage("The NDA has expired"))
	}

	hash, err := s.digest(nda.ID, in.SignerID, in.FullName, now, in.SignaturePayload)
	if err != nil {
		return nil, fail(action, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A request past its window is closed even when the sweeper has not reached it yet.
		var request models.NDARequest
		if err := tx.Select("id", "status", "expires_at").Where("id = ?", nda.RequestID).First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrStateConflict
			}
			return apperrors.Persistence(err)
		}
		if request.ExpiresAt != nil && !request.ExpiresAt.After(now) {
			return apperrors.ErrStateConflict.WithMessage("The NDA request has expired")
		}

		if err := transitionNDA(tx, nda.ID, models.NDAStatusApproved, models.NDAStatusActive, map[string]any{
			"access_granted": true,
			"signed_at":      now,
			"signature_hash": hash,
			"signer_name":    in.FullName,
			"signer_title":   in.Title,
			"signer_company": in.Company,
			"signer_ip":      in.IPAddress,
		}); err != nil {
			return err
		}
		if err := transitionRequest(tx, nda.RequestID, models.RequestStatusApproved, models.RequestStatusSigned, nil); err != nil {
			return err
		}
		if err := s.grants.grant(tx, nda.SignerID, nda.ProtectedItemID, nda.AccessLevel, nda.ID, now, nda.ExpiresAt); err != nil {
			return err
		}
		return s.audit.record(tx, AuditEntry{
			NDAID:     nda.ID,
			RequestID: nda.RequestID,
			ActorID:   in.SignerID,
			Action:    action,
			Metadata: map[string]any{
				"signer_name":    in.FullName,
				"signature_hash": hash,
				"ip_address":     in.IPAddress,
			},
		}, now)
	})
	if err != nil {
		return nil, fail(action, err)
	}
	observe(action, nil)

	nda.Status = models.NDAStatusActive
	nda.AccessGranted = true
	nda.SignedAt = &now
	nda.SignatureHash = hash
	nda.SignerName = in.FullName
	nda.SignerTitle = in.Title
	nda.SignerCompany = in.Company
	nda.SignerIP = in.IPAddress

	payload := ndaPayload(nda)
	payload["signer_name"] = in.FullName
	s.notify(ctx, nda.OwnerID, EventSigned, payload)
	s.log.Debug("nda signed", zap.String("nda_id", nda.ID), zap.String("signer_id", nda.SignerID))
	return &nda, nil
}

// VerifySignature recomputes the stored hash from the NDA row and the signature payload
// the signer submitted. A false result means the row or the payload was altered.
func (s *SignatureLedger) VerifySignature(nda *models.NDA, signaturePayload string) (bool, error) {
	if nda == nil || nda.SignedAt == nil || nda.SignatureHash == "" {
		return false, nil
	}
	claims := s.claims(nda.ID, nda.SignerID, nda.SignerName, *nda.SignedAt, signaturePayload)
	return crypto.VerifyObject(s.cfg.SignatureSecret, claims, nda.SignatureHash)
}

func (s *SignatureLedger) digest(ndaID, signerID, fullName string, signedAt time.Time, payload string) (string, error) {
	return crypto.SumObject(s.cfg.SignatureSecret, s.claims(ndaID, signerID, fullName, signedAt, payload))
}

func (s *SignatureLedger) claims(ndaID, signerID, fullName string, signedAt time.Time, payload string) signatureClaims {
	return signatureClaims{
		NDAID:         ndaID,
		SignerID:      signerID,
		FullName:      fullName,
		SignedAt:      signedAt.UTC().Format(time.RFC3339Nano),
		PayloadDigest: crypto.SumBytes([]byte(payload)),
	}
}
