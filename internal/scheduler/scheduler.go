// Package scheduler owns the daily wake-up that turns soon-due countdowns
// into alerts. Per alert slot it is either armed (a wake is pending) or
// disarmed; arming, disarming and restoring after a restart all go through
// Apply.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dday-keeper/internal/settings"
	"dday-keeper/internal/store"
	"dday-keeper/internal/widget"
)

// Alert is one due notification. ItemID is the identity key: a host that
// posts notifications keyed by it replaces an earlier alert for the same
// item instead of duplicating it.
type Alert struct {
	ItemID    uint
	Icon      string
	Title     string
	DaysUntil int
	Sound     bool
	Vibrate   bool
}

// Sink receives emitted alerts.
type Sink interface {
	Deliver(Alert) error
}

// Scheduler evaluates active countdowns against the configured alert slots
// on a daily cron wake.
type Scheduler struct {
	cron  *cron.Cron
	repo  *store.ItemRepository
	prefs *settings.Store
	sink  Sink
	icons map[string]string

	mu    sync.Mutex
	entry cron.EntryID
	armed bool
}

// New builds a scheduler; call Start to run its clock and Restore to arm it
// from persisted settings.
func New(loc *time.Location, repo *store.ItemRepository, prefs *settings.Store, sink Sink, categoryIcons map[string]string) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		repo:  repo,
		prefs: prefs,
		sink:  sink,
		icons: categoryIcons,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Armed reports whether a wake is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Restore re-arms from persisted settings. The wake timer does not survive
// a process restart, so the daemon calls this unconditionally on startup.
func (s *Scheduler) Restore() {
	s.Apply(s.prefs.Alerts())
}

// Apply reacts to a settings change: arm when any alert kind is enabled,
// disarm otherwise. Arming replaces any previously pending wake.
func (s *Scheduler) Apply(a settings.Alerts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		s.cron.Remove(s.entry)
		s.armed = false
	}
	if !a.Enabled() {
		log.Printf("[info] alerts disabled, wake disarmed")
		return
	}

	spec, err := buildDailySpec(a.Hour, a.Minute)
	if err == nil {
		s.entry, err = s.cron.AddFunc(spec, s.wake)
	}
	if err != nil {
		// Best-effort timing beats no timing: fall back to an
		// approximate 24h interval instead of failing the host.
		log.Printf("[warn] precise wake unavailable (%v), using approximate daily interval", err)
		s.entry, err = s.cron.AddFunc("@every 24h", s.wake)
		if err != nil {
			log.Printf("[error] schedule wake: %v", err)
			return
		}
	}
	s.armed = true
	log.Printf("[info] daily wake armed for %02d:%02d", a.Hour, a.Minute)
}

// wake is the cron callback. Store trouble is transient: log, stay armed,
// try again at the next wake.
func (s *Scheduler) wake() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	emitted, err := s.Evaluate(ctx, time.Now())
	if err != nil {
		log.Printf("[warn] wake evaluation: %v", err)
		return
	}
	log.Printf("[info] wake fired, %d alert(s) emitted", emitted)
}

// Evaluate runs one alert pass: a single store read, then at most one alert
// per active countdown whose days-until matches an enabled slot.
func (s *Scheduler) Evaluate(ctx context.Context, now time.Time) (int, error) {
	a := s.prefs.Alerts()
	if !a.Enabled() {
		return 0, nil
	}

	items, err := s.repo.ListActiveCountdowns(ctx)
	if err != nil {
		return 0, fmt.Errorf("read countdowns: %w", err)
	}

	emitted := 0
	for _, item := range items {
		date, ok := item.DatedOn()
		if !ok {
			continue
		}
		days := widget.DaysUntil(date, now)
		if !(days == 1 && a.DayBefore) && !(days == 0 && a.SameDay) {
			continue
		}
		alert := Alert{
			ItemID:    item.ID,
			Icon:      item.Icon(s.icons, "⏰"),
			Title:     item.Title,
			DaysUntil: days,
			Sound:     a.Sound,
			Vibrate:   a.Vibrate,
		}
		if err := s.sink.Deliver(alert); err != nil {
			log.Printf("[warn] deliver alert for item %d: %v", item.ID, err)
			continue
		}
		emitted++
	}
	return emitted, nil
}

func buildDailySpec(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %d", minute)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
