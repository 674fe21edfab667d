package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
)

func TestManagerCreateGetRemove(t *testing.T) {
	m := NewManager(zap.NewNop(), 0)

	s, err := m.CreateSession()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	got, err := m.GetSession(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())
	assert.Len(t, m.GetAllSessions(), 1)

	m.RemoveSession(s.ID)
	_, err = m.GetSession(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, m.Count())

	m.RemoveSession("unknown")
}

func TestManagerCapacity(t *testing.T) {
	m := NewManager(zap.NewNop(), 2)

	for i := 0; i < 2; i++ {
		_, err := m.CreateSession()
		require.NoError(t, err)
	}
	_, err := m.CreateSession()
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManagerFixedID(t *testing.T) {
	m := NewManager(nil, 0)
	s, err := m.CreateSession(WithID("table-1"))
	require.NoError(t, err)
	assert.Equal(t, "table-1", s.ID)
}

func TestManagerGestureConfigPropagates(t *testing.T) {
	m := NewManager(zap.NewNop(), 0)
	existing, err := m.CreateSession()
	require.NoError(t, err)

	cfg := gesture.DefaultConfig()
	cfg.HoldDelay = 400 * time.Millisecond
	m.SetGestureConfig(cfg)

	later, err := m.CreateSession()
	require.NoError(t, err)

	for _, s := range []*Session{existing, later} {
		s.SetCollection(pageOf(testCards...))
		_, err := s.Apply(Input{Kind: InputPointerDown, At: ms(0), Zone: card.ZoneCollection, ID: "bolt"})
		require.NoError(t, err)
		deadline, ok := s.HoldDeadline()
		require.True(t, ok)
		assert.Equal(t, ms(400), deadline)
	}
}

func TestManagerCloseIdle(t *testing.T) {
	m := NewManager(zap.NewNop(), 0)
	stale, err := m.CreateSession()
	require.NoError(t, err)
	fresh, err := m.CreateSession()
	require.NoError(t, err)

	fresh.SetCollection(pageOf(testCards...))
	_, err = fresh.Apply(Input{Kind: InputSelect, At: time.Now().Add(time.Hour), Zone: card.ZoneCollection, ID: "bolt"})
	require.NoError(t, err)

	closed := m.CloseIdle(time.Now().Add(30*time.Minute), 10*time.Minute)
	assert.Equal(t, 1, closed)

	_, err = m.GetSession(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.GetSession(fresh.ID)
	assert.NoError(t, err)
}
