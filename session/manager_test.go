package session

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/extraction"
	"github.com/giygas/drugsafe-api/metrics"
)

func newTestManager(ttl time.Duration, max int) *Manager {
	return NewManager(extraction.NewMockExtractor(0), ManagerConfig{
		TTL:               ttl,
		MaxSessions:       max,
		ExtractionTimeout: time.Second,
	})
}

func TestManagerCreateGetDelete(t *testing.T) {
	m := newTestManager(time.Minute, 10)
	defer m.Close()

	gauge := testutil.ToFloat64(metrics.SessionsActive)

	s := m.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, gauge+1, testutil.ToFloat64(metrics.SessionsActive))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	other := m.Create()
	assert.NotEqual(t, s.ID, other.ID)

	assert.True(t, m.Delete(s.ID))
	assert.False(t, m.Delete(s.ID))
	assert.True(t, s.Closed())
	assert.Equal(t, gauge+1, testutil.ToFloat64(metrics.SessionsActive))

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, entities.ErrSessionNotFound)
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(time.Minute, 10)
	defer m.Close()

	_, err := m.Get("does-not-exist")
	assert.ErrorIs(t, err, entities.ErrSessionNotFound)
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	m := newTestManager(50*time.Millisecond, 10)
	defer m.Close()

	s := m.Create()
	require.NoError(t, s.StartExtraction("text"))

	assert.Eventually(t, func() bool {
		_, err := m.Get(s.ID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, s.Closed, 2*time.Second, 10*time.Millisecond)
}

func TestManagerGetRenewsExpiry(t *testing.T) {
	m := newTestManager(200*time.Millisecond, 10)
	defer m.Close()

	s := m.Create()
	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, err := m.Get(s.ID)
		require.NoError(t, err, "session should stay alive while in use")
		time.Sleep(20 * time.Millisecond)
	}
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	m := newTestManager(time.Minute, 2)
	defer m.Close()

	first := m.Create()
	second := m.Create()
	_, err := m.Get(first.ID)
	require.NoError(t, err)

	third := m.Create()

	assert.Equal(t, 2, m.Len())
	assert.True(t, second.Closed())
	_, err = m.Get(second.ID)
	assert.ErrorIs(t, err, entities.ErrSessionNotFound)
	for _, s := range []*Session{first, third} {
		_, err := m.Get(s.ID)
		assert.NoError(t, err)
	}
}

func TestManagerClose(t *testing.T) {
	m := newTestManager(time.Minute, 10)
	a, b := m.Create(), m.Create()

	m.Close()

	assert.Zero(t, m.Len())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}
