package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func click(m *Machine, at int, target Target) Result {
	res := m.PointerDown(ms(at), Point{}, ButtonPrimary, false, target)
	if res.Outcome != OutcomeNone {
		return res
	}
	return m.PointerUp(ms(at+40), Point{})
}

func TestSecondPressWithinWindowIsDoubleClick(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")

	assert.Equal(t, OutcomeClick, click(m, 0, target).Outcome)
	res := click(m, 300, target)
	assert.Equal(t, OutcomeDoubleClick, res.Outcome)
	assert.Equal(t, "bolt", res.Target.ID)
	assert.Equal(t, StateIdle, m.State())
}

func TestSlowSecondPressIsClick(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")

	click(m, 0, target)
	assert.Equal(t, OutcomeClick, click(m, 600, target).Outcome)
}

func TestDifferentCardsNeverDoubleClick(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	click(m, 0, collectionTarget("a"))
	assert.Equal(t, OutcomeClick, click(m, 200, collectionTarget("b")).Outcome)
	assert.Equal(t, OutcomeDoubleClick, click(m, 400, collectionTarget("b")).Outcome)
}

func TestDoubleClickSuppressesDragArming(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")
	click(m, 0, target)
	require.Equal(t, OutcomeDoubleClick, click(m, 200, target).Outcome)

	// third press inside the suppression window does not arm
	m.PointerDown(ms(350), Point{}, ButtonPrimary, false, target)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, OutcomeNone, m.Tick(ms(600)).Outcome)

	// after the window presses arm again
	m.PointerDown(ms(900), Point{}, ButtonPrimary, false, target)
	assert.Equal(t, StateArmed, m.State())
}

func TestThirdClickDoesNotChainDoubleClick(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")
	click(m, 0, target)
	require.Equal(t, OutcomeDoubleClick, click(m, 200, target).Outcome)
	assert.Equal(t, OutcomeClick, click(m, 550, target).Outcome)
}

func TestNativeDoubleClickDebounced(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")

	assert.Equal(t, OutcomeDoubleClick, m.DoubleClick(ms(1000), target).Outcome)
	assert.Equal(t, OutcomeNone, m.DoubleClick(ms(1050), target).Outcome)
	assert.Equal(t, OutcomeDoubleClick, m.DoubleClick(ms(1200), target).Outcome)
}

func TestPressAndNativeDoubleClickActOnce(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	target := collectionTarget("bolt")
	click(m, 0, target)

	res := m.PointerDown(ms(200), Point{}, ButtonPrimary, false, target)
	require.Equal(t, OutcomeDoubleClick, res.Outcome)
	m.PointerUp(ms(230), Point{})
	assert.Equal(t, OutcomeNone, m.DoubleClick(ms(240), target).Outcome)
}

func TestNativeDoubleClickIgnoredDuringDrag(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil)
	startDrag(t, m, collectionTarget("bolt"))
	assert.Equal(t, OutcomeNone, m.DoubleClick(ms(200), collectionTarget("bolt")).Outcome)
	assert.Equal(t, StateDragging, m.State())
}
