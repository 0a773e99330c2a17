package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/models"
)

const (
	testOwnerID     = "creator-1"
	testRequesterID = "investor-1"
	testSecret      = "test-signature-secret"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notifiedEvent struct {
	RecipientID string
	Event       string
	Payload     map[string]any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID, eventType string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{RecipientID: recipientID, Event: eventType, Payload: payload})
	return n.err
}

func (n *recordingNotifier) Events() []notifiedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifiedEvent(nil), n.events...)
}

func (n *recordingNotifier) Last() notifiedEvent {
	events := n.Events()
	if len(events) == 0 {
		return notifiedEvent{}
	}
	return events[len(events)-1]
}

type ndaFixture struct {
	t        *testing.T
	db       *gorm.DB
	engine   *Engine
	clock    *fakeClock
	notifier *recordingNotifier
	pitch    models.Pitch
}

func newNDAFixture(t *testing.T, mutate ...func(*EngineConfig)) *ndaFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	pitch := models.Pitch{OwnerID: testOwnerID, Title: "Night Shift", RequiresNDA: true}
	require.NoError(t, db.Create(&pitch).Error)

	cfg := EngineConfig{
		SignatureSecret: []byte(testSecret),
		Capabilities:    FullCapabilities(),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine, err := NewEngine(EngineDeps{
		DB:       db,
		Notifier: notifier,
		Clock:    clock.Now,
		Config:   cfg,
	})
	require.NoError(t, err)

	return &ndaFixture{t: t, db: db, engine: engine, clock: clock, notifier: notifier, pitch: pitch}
}

func (f *ndaFixture) request() *models.NDARequest {
	f.t.Helper()
	request, err := f.engine.Requests.RequestAccess(context.Background(), RequestAccessInput{
		RequesterID:     testRequesterID,
		ProtectedItemID: f.pitch.ID,
		NDAType:         models.NDATypeStandard,
		RequestedAccess: models.AccessLevelBasic,
		Message:         "Interested in financing the pilot",
		ExpirationDays:  30,
	})
	require.NoError(f.t, err)
	return request
}

func (f *ndaFixture) approve(requestID string, mutate ...func(*ApproveInput)) *models.NDA {
	f.t.Helper()
	in := ApproveInput{
		OwnerID:     testOwnerID,
		RequestID:   requestID,
		AccessLevel: models.AccessLevelStandard,
	}
	for _, fn := range mutate {
		fn(&in)
	}
	nda, err := f.engine.Approvals.Approve(context.Background(), in)
	require.NoError(f.t, err)
	return nda
}

func (f *ndaFixture) signInput(ndaID string) SignInput {
	return SignInput{
		SignerID:         testRequesterID,
		NDAID:            ndaID,
		SignaturePayload: "data:image/png;base64,c2lnbmF0dXJl",
		FullName:         "Ada Investor",
		Company:          "North Capital",
		IPAddress:        "203.0.113.7",
		AcceptTerms:      true,
	}
}

func (f *ndaFixture) sign(ndaID string) *models.NDA {
	f.t.Helper()
	nda, err := f.engine.Signatures.Sign(context.Background(), f.signInput(ndaID))
	require.NoError(f.t, err)
	return nda
}

// activeNDA runs request, approve and sign.
func (f *ndaFixture) activeNDA(mutate ...func(*ApproveInput)) *models.NDA {
	f.t.Helper()
	request := f.request()
	approved := f.approve(request.ID, mutate...)
	return f.sign(approved.ID)
}

func (f *ndaFixture) hasAccess() bool {
	f.t.Helper()
	ok, err := f.engine.Grants.HasAccess(context.Background(), testRequesterID, f.pitch.ID)
	require.NoError(f.t, err)
	return ok
}

func (f *ndaFixture) reloadNDA(id string) models.NDA {
	f.t.Helper()
	var nda models.NDA
	require.NoError(f.t, f.db.Where("id = ?", id).First(&nda).Error)
	return nda
}

func (f *ndaFixture) reloadRequest(id string) models.NDARequest {
	f.t.Helper()
	var request models.NDARequest
	require.NoError(f.t, f.db.Where("id = ?", id).First(&request).Error)
	return request
}

func (f *ndaFixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *ndaFixture) auditActions(ndaID string) []string {
	f.t.Helper()
	entries, err := f.engine.Audit.ListForNDA(context.Background(), testOwnerID, ndaID)
	require.NoError(f.t, err)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

var errNotifierDown = errors.New("smtp relay unavailable")
