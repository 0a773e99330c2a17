package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/pitchey/ndagate/pkg/errors"
	"github.com/pitchey/ndagate/pkg/logger"
	"github.com/pitchey/ndagate/pkg/metrics"
)

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

// Capabilities switch tier dependent behaviour on a single engine.
type Capabilities struct {
	Auditing     bool
	Watermarking bool
	Downloads    bool
}

// FullCapabilities enables every feature.
func FullCapabilities() Capabilities {
	return Capabilities{Auditing: true, Watermarking: true, Downloads: true}
}

// EngineConfig holds the tunables of the lifecycle engine.
type EngineConfig struct {
	DefaultExpirationDays int
	MinExpirationDays     int
	MaxExpirationDays     int
	SignatureSecret       []byte
	SweepBatchSize        int
	Capabilities          Capabilities
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MinExpirationDays <= 0 {
		c.MinExpirationDays = 7
	}
	if c.MaxExpirationDays <= 0 {
		c.MaxExpirationDays = 365
	}
	if c.DefaultExpirationDays <= 0 {
		c.DefaultExpirationDays = 30
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = 200
	}
	return c
}

// EngineDeps are the collaborators injected into the engine. Only DB and
// Config.SignatureSecret are mandatory.
type EngineDeps struct {
	DB       *gorm.DB
	Items    ItemDirectory
	Notifier NotificationDispatcher
	Clock    Clock
	Logger   *zap.Logger
	Config   EngineConfig
}

// Engine groups the lifecycle components around one persistence handle.
type Engine struct {
	Requests    *RequestIntake
	Approvals   *ApprovalAuthority
	Signatures  *SignatureLedger
	Revocations *RevocationAuthority
	Sweeper     *ExpirationSweeper
	Grants      *AccessGrantManager
	Audit       *AuditTrail

	*core
}

// core is shared by every component. It carries no mutable state.
type core struct {
	db       *gorm.DB
	items    ItemDirectory
	notifier NotificationDispatcher
	clock    Clock
	log      *zap.Logger
	cfg      EngineConfig
	audit    *AuditTrail
	grants   *AccessGrantManager
}

// NewEngine wires the lifecycle components.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.DB == nil {
		return nil, errors.New("nda engine: db is required")
	}
	cfg := deps.Config.withDefaults()
	if len(cfg.SignatureSecret) == 0 {
		return nil, errors.New("nda engine: signature secret is required")
	}
	if cfg.MinExpirationDays > cfg.MaxExpirationDays {
		return nil, errors.New("nda engine: min expiration days exceeds max")
	}

	c := &core{
		db:       deps.DB,
		items:    deps.Items,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		log:      deps.Logger,
		cfg:      cfg,
	}
	if c.items == nil {
		c.items = NewPitchDirectory(deps.DB)
	}
	if c.notifier == nil {
		c.notifier = noopDispatcher{}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.log == nil {
		c.log = logger.WithModule("nda")
	}
	c.audit = &AuditTrail{db: deps.DB, enabled: cfg.Capabilities.Auditing}
	c.grants = &AccessGrantManager{db: deps.DB, clock: c.now}

	return &Engine{
		Requests:    &RequestIntake{core: c},
		Approvals:   &ApprovalAuthority{core: c},
		Signatures:  &SignatureLedger{core: c},
		Revocations: &RevocationAuthority{core: c},
		Sweeper:     &ExpirationSweeper{core: c},
		Grants:      c.grants,
		Audit:       c.audit,
		core:        c,
	}, nil
}

// now returns the clock in UTC, truncated to the precision every supported store keeps.
func (c *core) now() time.Time {
	return c.clock().UTC().Truncate(time.Microsecond)
}

// notify hands an event to the dispatcher once the transition has committed.
// Failures are logged and counted, never returned.
func (c *core) notify(ctx context.Context, recipientID, event string, payload map[string]any) {
	if recipientID == "" {
		return
	}
	ctx = context.WithoutCancel(ensureContext(ctx))
	if err := c.notifier.Notify(ctx, recipientID, event, payload); err != nil {
		metrics.NotificationFailures.WithLabelValues(event).Inc()
		c.log.Warn("notification dispatch failed",
			zap.String("event", event),
			zap.String("recipient_id", recipientID),
			zap.Error(err),
		)
	}
}

// observe records the outcome of a transition attempt.
func observe(action string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrStateConflict):
		result = "conflict"
	case errors.Is(err, apperrors.ErrPersistence):
		result = "error"
	default:
		result = "rejected"
	}
	metrics.NDATransitions.WithLabelValues(action, result).Inc()
}

// fail converts a transaction error into the caller facing error and records it.
func fail(action string, err error) error {
	appErr := apperrors.Persistence(err)
	observe(action, appErr)
	return appErr
}
