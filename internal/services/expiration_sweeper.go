package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/metrics"
)

// SweepResult summarises one sweep pass.
type SweepResult struct {
	ExpiredNDAs     int `json:"expired_ndas"`
	ExpiredRequests int `json:"expired_requests"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
}

// ExpirationSweeper closes out NDAs and requests whose window has passed.
type ExpirationSweeper struct {
	*core
}

// Sweep expires every live NDA and open request with expires_at before now. Each row is its
// own conditional transition, so concurrent sweeps and a racing Sign never double-apply;
// the loser of a race is counted as skipped. Per-row failures are logged and returned
// together once the pass ends. A cancelled ctx stops the pass between rows.
func (s *ExpirationSweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	ctx = ensureContext(ctx)
	now = now.UTC()
	started := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}()

	var (
		result SweepResult
		errs   error
	)

	var ndas []models.NDA
	scan := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.NDAStatusActive, models.NDAStatusSigned}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		FindInBatches(&ndas, s.cfg.SweepBatchSize, func(_ *gorm.DB, _ int) error {
			for _, nda := range ndas {
				if err := ctx.Err(); err != nil {
					return err
				}
				errs = multierr.Append(errs, s.tally(&result, "nda", nda.ID, s.expireNDA(ctx, nda, now)))
			}
			return nil
		})
	if scan.Error != nil {
		return result, multierr.Append(errs, scanError(scan.Error))
	}

	var requests []models.NDARequest
	scan = s.db.WithContext(ctx).
		Where("status IN ?", []string{models.RequestStatusPending, models.RequestStatusApproved}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		FindInBatches(&requests, s.cfg.SweepBatchSize, func(_ *gorm.DB, _ int) error {
			for _, request := range requests {
				if err := ctx.Err(); err != nil {
					return err
				}
				errs = multierr.Append(errs, s.tally(&result, "request", request.ID, s.expireOpenRequest(ctx, request, now)))
			}
			return nil
		})
	if scan.Error != nil {
		errs = multierr.Append(errs, scanError(scan.Error))
	}

	if result.ExpiredNDAs > 0 || result.ExpiredRequests > 0 || errs != nil {
		s.log.Info("expiration sweep finished",
			zap.Int("expired_ndas", result.ExpiredNDAs),
			zap.Int("expired_requests", result.ExpiredRequests),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, errs
}

func (s *ExpirationSweeper) expireNDA(ctx context.Context, nda models.NDA, now time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionNDA(tx, nda.ID, nda.Status, models.NDAStatusExpired, nil); err != nil {
			return err
		}
		if err := s.grants.revoke(tx, nda.SignerID, nda.ProtectedItemID, nda.ID); err != nil {
			return err
		}
		return s.audit.record(tx, AuditEntry{
			NDAID:     nda.ID,
			RequestID: nda.RequestID,
			ActorID:   models.SystemActorID,
			Action:    models.AuditNDAExpired,
			Metadata:  map[string]any{"expires_at": nda.ExpiresAt},
		}, now)
	})
	observe(models.AuditNDAExpired, err)
	if err != nil {
		return err
	}

	nda.Status = models.NDAStatusExpired
	nda.AccessGranted = false
	s.notify(ctx, nda.SignerID, EventExpired, ndaPayload(nda))
	return nil
}

func (s *ExpirationSweeper) expireOpenRequest(ctx context.Context, request models.NDARequest, now time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.expireRequest(tx, request, now)
	})
	observe(models.AuditRequestExpired, err)
	if err != nil {
		return err
	}

	request.Status = models.RequestStatusExpired
	s.notify(ctx, request.RequesterID, EventRequestExpired, requestPayload(request))
	return nil
}

// tally folds one row outcome into the result. Lost races are not failures.
func (s *ExpirationSweeper) tally(result *SweepResult, kind, id string, err error) error {
	switch {
	case err == nil:
		metrics.SweepExpired.WithLabelValues(kind).Inc()
		if kind == "nda" {
			result.ExpiredNDAs++
		} else {
			result.ExpiredRequests++
		}
		return nil
	case errors.Is(err, apperrors.ErrStateConflict):
		result.Skipped++
		return nil
	default:
		result.Failed++
		s.log.Warn("expiration sweep row failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		return err
	}
}

func scanError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Persistence(err)
}
