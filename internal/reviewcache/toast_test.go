package reviewcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastCenter_DedupesByID(t *testing.T) {
	var shown []Toast
	tc := NewToastCenter(func(t Toast) { shown = append(shown, t) })

	tc.Show(Toast{ID: TransportErrorToastID, Title: "first"})
	tc.Show(Toast{ID: TransportErrorToastID, Title: "second"})

	require.Len(t, shown, 1)
	require.Len(t, tc.Active(), 1)

	got, ok := tc.Get(TransportErrorToastID)
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)
}

func TestToastCenter_AssignsID(t *testing.T) {
	tc := NewToastCenter(nil)

	tc.Show(Toast{Title: "a"})
	tc.Show(Toast{Title: "b"})

	active := tc.Active()
	require.Len(t, active, 2)
	assert.NotEmpty(t, active[0].ID)
	assert.NotEqual(t, active[0].ID, active[1].ID)
	assert.Equal(t, "a", active[0].Title)
}

func TestToastCenter_Dismiss(t *testing.T) {
	count := 0
	tc := NewToastCenter(func(Toast) { count++ })

	tc.Show(Toast{ID: "x"})
	tc.Show(Toast{ID: "y"})
	tc.Dismiss("x")
	tc.Dismiss("missing")

	active := tc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "y", active[0].ID)

	tc.Show(Toast{ID: "x"})
	assert.Equal(t, 3, count)
}
