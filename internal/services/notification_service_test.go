package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/internal/realtime"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

func TestNotificationServiceNotifyPersists(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	svc, err := NewNotificationService(db, realtime.NewHub())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, "investor-1", EventApproved, map[string]any{
		"nda_id":            "nda-1",
		"protected_item_id": "pitch-1",
	}))

	items, err := svc.ListForUser(ctx, "investor-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, EventApproved, items[0].Type)
	require.Equal(t, "NDA approved", items[0].Title)
	require.Equal(t, "success", items[0].Severity)
	require.Equal(t, "/ndas/nda-1", items[0].ActionURL)
	require.Equal(t, "nda-1", items[0].Metadata["nda_id"])

	require.NoError(t, svc.MarkRead(ctx, "investor-1", items[0].ID))
	require.ErrorIs(t, svc.MarkRead(ctx, "someone-else", items[0].ID), apperrors.ErrNotFound)

	require.Error(t, svc.Notify(ctx, "", EventApproved, nil))
}

func TestNotificationServiceDeleteOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	old := models.Notification{UserID: "u-1", Type: EventExpired, Title: "old"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -120)).Error)
	require.NoError(t, svc.Notify(context.Background(), "u-1", EventSigned, nil))

	removed, err := svc.DeleteOlderThan(context.Background(), time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	items, err := svc.ListForUser(context.Background(), "u-1", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestEngineNotifiesThroughNotificationService(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	pitch := models.Pitch{OwnerID: testOwnerID, Title: "Night Shift", RequiresNDA: true}
	require.NoError(t, db.Create(&pitch).Error)

	notifications, err := NewNotificationService(db, realtime.NewHub())
	require.NoError(t, err)
	engine, err := NewEngine(EngineDeps{
		DB:       db,
		Notifier: notifications,
		Config:   EngineConfig{SignatureSecret: []byte(testSecret), Capabilities: FullCapabilities()},
	})
	require.NoError(t, err)

	_, err = engine.Requests.RequestAccess(context.Background(), RequestAccessInput{
		RequesterID:     testRequesterID,
		ProtectedItemID: pitch.ID,
	})
	require.NoError(t, err)

	items, err := notifications.ListForUser(context.Background(), testOwnerID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, EventRequested, items[0].Type)
	require.Equal(t, "/pitches/"+pitch.ID, items[0].ActionURL)
}
