package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/internal/models"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

func TestRequestTransitionTable(t *testing.T) {
	require.True(t, CanTransitionRequest(models.RequestStatusPending, models.RequestStatusApproved))
	require.True(t, CanTransitionRequest(models.RequestStatusPending, models.RequestStatusRejected))
	require.True(t, CanTransitionRequest(models.RequestStatusPending, models.RequestStatusExpired))
	require.True(t, CanTransitionRequest(models.RequestStatusApproved, models.RequestStatusSigned))
	require.True(t, CanTransitionRequest(models.RequestStatusApproved, models.RequestStatusExpired))

	require.False(t, CanTransitionRequest(models.RequestStatusApproved, models.RequestStatusRejected))
	require.False(t, CanTransitionRequest(models.RequestStatusPending, models.RequestStatusSigned))
}

func TestNDATransitionTable(t *testing.T) {
	require.True(t, CanTransitionNDA(models.NDAStatusApproved, models.NDAStatusActive))
	require.True(t, CanTransitionNDA(models.NDAStatusApproved, models.NDAStatusExpired))
	require.True(t, CanTransitionNDA(models.NDAStatusActive, models.NDAStatusRevoked))
	require.True(t, CanTransitionNDA(models.NDAStatusActive, models.NDAStatusExpired))
	require.True(t, CanTransitionNDA(models.NDAStatusSigned, models.NDAStatusActive))

	require.False(t, CanTransitionNDA(models.NDAStatusApproved, models.NDAStatusRevoked))
	require.False(t, CanTransitionNDA(models.NDAStatusActive, models.NDAStatusApproved))
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	all := []string{
		models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected,
		models.RequestStatusExpired, models.RequestStatusSigned,
		models.NDAStatusActive, models.NDAStatusRevoked,
	}
	for _, terminal := range []string{models.RequestStatusRejected, models.RequestStatusExpired} {
		for _, to := range all {
			require.False(t, CanTransitionRequest(terminal, to), "%s -> %s", terminal, to)
		}
	}
	for _, terminal := range []string{models.NDAStatusExpired, models.NDAStatusRevoked} {
		for _, to := range all {
			require.False(t, CanTransitionNDA(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestTransitionRejectsIllegalMoveBeforeTouchingStore(t *testing.T) {
	f := newNDAFixture(t)
	request := f.request()

	err := transitionRequest(f.db, request.ID, models.RequestStatusRejected, models.RequestStatusApproved, nil)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	require.Equal(t, models.RequestStatusPending, f.reloadRequest(request.ID).Status)
}

func TestConditionalUpdateDetectsStaleStatus(t *testing.T) {
	f := newNDAFixture(t)
	request := f.request()

	err := transitionRequest(f.db, request.ID, models.RequestStatusApproved, models.RequestStatusSigned, nil)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)

	require.NoError(t, transitionRequest(f.db, request.ID, models.RequestStatusPending, models.RequestStatusRejected, nil))
	stored := f.reloadRequest(request.ID)
	require.Equal(t, models.RequestStatusRejected, stored.Status)
	require.Nil(t, stored.ActiveKey)
}
