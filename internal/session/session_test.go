package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/session"
)

func TestOpenAndActive(t *testing.T) {
	m := session.New(24 * time.Hour)
	userID := uuid.New()
	projA := uuid.New()
	projB := uuid.New()

	accounts := []session.Account{
		{ProjectID: projA, Role: model.RoleAdmin},
		{ProjectID: projB, Role: model.RoleViewer},
	}
	m.Open("conn-1", userID, projA, accounts)

	sess, err := m.Active("conn-1")
	require.NoError(t, err)
	assert.Equal(t, projA, sess.ActiveProjectID)
	assert.Equal(t, model.RoleAdmin, sess.ActiveRole)
}

func TestActiveUnknownConnection(t *testing.T) {
	m := session.New(24 * time.Hour)
	_, err := m.Active("nope")
	assert.Error(t, err)
}

func TestSwitchToAvailableAccount(t *testing.T) {
	m := session.New(24 * time.Hour)
	userID := uuid.New()
	projA := uuid.New()
	projB := uuid.New()

	m.Open("conn-1", userID, projA, []session.Account{
		{ProjectID: projA, Role: model.RoleAdmin},
		{ProjectID: projB, Role: model.RoleEditor},
	})

	sess, err := m.Switch("conn-1", projB)
	require.NoError(t, err)
	assert.Equal(t, projB, sess.ActiveProjectID)
	assert.Equal(t, model.RoleEditor, sess.ActiveRole)
}

func TestSwitchRejectsUnavailableAccount(t *testing.T) {
	m := session.New(24 * time.Hour)
	projA := uuid.New()
	outsider := uuid.New()

	m.Open("conn-1", uuid.New(), projA, []session.Account{{ProjectID: projA, Role: model.RoleAdmin}})

	_, err := m.Switch("conn-1", outsider)
	assert.Error(t, err)
}

func TestReapRemovesStaleSessions(t *testing.T) {
	m := session.New(time.Millisecond)
	m.Open("conn-1", uuid.New(), uuid.New(), nil)

	time.Sleep(5 * time.Millisecond)
	removed := m.Reap()
	assert.Equal(t, 1, removed)

	_, err := m.Active("conn-1")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	m := session.New(24 * time.Hour)
	m.Open("conn-1", uuid.New(), uuid.New(), nil)
	m.Remove("conn-1")

	_, err := m.Active("conn-1")
	assert.Error(t, err)
}
