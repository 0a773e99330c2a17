package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/pitchey/ndagate/internal/auth"
	"github.com/pitchey/ndagate/internal/handlers/testutil"
	"github.com/pitchey/ndagate/internal/services"
)

func TestNotificationHandlersListAndMarkRead(t *testing.T) {
	env := testutil.NewEnv(t)
	pitchID := env.CreatePitch(creatorID)
	creator := env.Token(creatorID, iauth.RoleCreator)
	investor := env.Token(investorID, iauth.RoleInvestor)

	w := env.Request(http.MethodPost, "/api/ndas/request", map[string]any{"protected_item_id": pitchID}, investor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	items := decodeData[[]services.NotificationDTO](t, env, http.StatusOK, http.MethodGet, "/api/notifications", nil, creator)
	require.Len(t, items, 1)
	require.Equal(t, services.EventRequested, items[0].Type)
	require.False(t, items[0].IsRead)

	// Another user cannot touch the notification.
	requireErrorCode(t, env, http.StatusNotFound, "NOT_FOUND", http.MethodPost, "/api/notifications/"+items[0].ID+"/read", nil, investor)

	w = env.Request(http.MethodPost, "/api/notifications/"+items[0].ID+"/read", nil, creator)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items = decodeData[[]services.NotificationDTO](t, env, http.StatusOK, http.MethodGet, "/api/notifications?limit=5", nil, creator)
	require.True(t, items[0].IsRead)

	empty := decodeData[[]services.NotificationDTO](t, env, http.StatusOK, http.MethodGet, "/api/notifications", nil, investor)
	require.Empty(t, empty)
}
