package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableWithinProcess(t *testing.T) {
	prev := New("task")
	for i := 0; i < 200; i++ {
		next := New("task")
		assert.Less(t, prev, next, "ids must sort in creation order")
		prev = next
	}
}

func TestNewHasPrefix(t *testing.T) {
	got := New("plan")
	assert.True(t, strings.HasPrefix(got, "plan_"))
}

func TestNewNoPrefix(t *testing.T) {
	got := New("")
	assert.False(t, strings.Contains(got, "_"))
}

func TestShort(t *testing.T) {
	full := New("task")
	short := Short(full)
	require.Len(t, short, ShortLen)
	assert.True(t, strings.HasPrefix(full, "task_"+short))
}

func TestClockAdvancesOnRegression(t *testing.T) {
	c := NewClock()
	future := c.NowMilli() + 1_000_000
	c.last = future
	got := c.NowMilli()
	assert.Equal(t, future+1, got)
}

func TestNowUTCMonotonic(t *testing.T) {
	a := NowUTC()
	b := NowUTC()
	assert.Less(t, a, b)
}
