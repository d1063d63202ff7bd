// Package settings persists the flat key-value preferences consumed by the
// notification scheduler and the display surface. Preferences are cosmetic
// or scheduling inputs only; they never touch item state.
package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Alerts holds the notification toggles and the daily wake slot.
type Alerts struct {
	DayBefore bool
	SameDay   bool
	Hour      int
	Minute    int
	Sound     bool
	Vibrate   bool
}

// Enabled reports whether any alert kind is on.
func (a Alerts) Enabled() bool {
	return a.DayBefore || a.SameDay
}

// Display holds the display surface preferences.
type Display struct {
	Opacity   float64
	FontScale float64
	Mode      string
}

// Store is a viper-backed settings file.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

func New(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("alerts.day_before", false)
	v.SetDefault("alerts.same_day", false)
	v.SetDefault("alerts.hour", 9)
	v.SetDefault("alerts.minute", 0)
	v.SetDefault("alerts.sound", true)
	v.SetDefault("alerts.vibrate", true)
	v.SetDefault("display.opacity", 1.0)
	v.SetDefault("display.font_scale", 1.0)
	v.SetDefault("display.mode", "combined")

	return &Store{v: v, path: path}
}

// Load reads the settings file. A missing file is not an error: defaults
// apply until the first Save.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	return nil
}

// Save writes the current values back to the settings file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *Store) Alerts() Alerts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Alerts{
		DayBefore: s.v.GetBool("alerts.day_before"),
		SameDay:   s.v.GetBool("alerts.same_day"),
		Hour:      s.v.GetInt("alerts.hour"),
		Minute:    s.v.GetInt("alerts.minute"),
		Sound:     s.v.GetBool("alerts.sound"),
		Vibrate:   s.v.GetBool("alerts.vibrate"),
	}
}

// SetAlerts stores and persists the alert preferences.
func (s *Store) SetAlerts(a Alerts) error {
	s.mu.Lock()
	s.v.Set("alerts.day_before", a.DayBefore)
	s.v.Set("alerts.same_day", a.SameDay)
	s.v.Set("alerts.hour", a.Hour)
	s.v.Set("alerts.minute", a.Minute)
	s.v.Set("alerts.sound", a.Sound)
	s.v.Set("alerts.vibrate", a.Vibrate)
	s.mu.Unlock()
	return s.Save()
}

func (s *Store) Display() Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Display{
		Opacity:   s.v.GetFloat64("display.opacity"),
		FontScale: s.v.GetFloat64("display.font_scale"),
		Mode:      s.v.GetString("display.mode"),
	}
}

// SetDisplay stores and persists the display preferences.
func (s *Store) SetDisplay(d Display) error {
	s.mu.Lock()
	s.v.Set("display.opacity", d.Opacity)
	s.v.Set("display.font_scale", d.FontScale)
	s.v.Set("display.mode", d.Mode)
	s.mu.Unlock()
	return s.Save()
}

// Watch invokes fn after every settings file change, so the scheduler can
// re-arm without a restart.
func (s *Store) Watch(fn func()) {
	s.v.OnConfigChange(func(fsnotify.Event) {
		fn()
	})
	s.v.WatchConfig()
}
