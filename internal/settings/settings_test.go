package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, s.Load())

	a := s.Alerts()
	assert.False(t, a.Enabled())
	assert.Equal(t, 9, a.Hour)
	assert.Equal(t, 0, a.Minute)

	d := s.Display()
	assert.Equal(t, 1.0, d.Opacity)
	assert.Equal(t, "combined", d.Mode)
}

func TestAlertsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := New(path)
	require.NoError(t, s.Load())
	require.NoError(t, s.SetAlerts(Alerts{
		DayBefore: true,
		SameDay:   true,
		Hour:      21,
		Minute:    30,
		Sound:     false,
		Vibrate:   true,
	}))

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	a := reloaded.Alerts()
	assert.True(t, a.DayBefore)
	assert.True(t, a.SameDay)
	assert.Equal(t, 21, a.Hour)
	assert.Equal(t, 30, a.Minute)
	assert.False(t, a.Sound)
	assert.True(t, a.Vibrate)
}

func TestDisplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := New(path)
	require.NoError(t, s.Load())
	require.NoError(t, s.SetDisplay(Display{Opacity: 0.8, FontScale: 1.2, Mode: "todo"}))

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	d := reloaded.Display()
	assert.Equal(t, 0.8, d.Opacity)
	assert.Equal(t, 1.2, d.FontScale)
	assert.Equal(t, "todo", d.Mode)
}

func TestAlertsEnabled(t *testing.T) {
	assert.False(t, Alerts{}.Enabled())
	assert.True(t, Alerts{DayBefore: true}.Enabled())
	assert.True(t, Alerts{SameDay: true}.Enabled())
}
