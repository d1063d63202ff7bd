// Package notify delivers scheduler alerts to the outside world.
package notify

import (
	"log"

	"dday-keeper/internal/scheduler"
)

// LogSink writes alerts to the process log. It is the default sink when no
// delivery channel is configured.
type LogSink struct{}

func (LogSink) Deliver(a scheduler.Alert) error {
	log.Printf("[info] alert item=%d %s %s (%s)", a.ItemID, a.Icon, a.Title, countdownLabel(a.DaysUntil))
	return nil
}

func countdownLabel(days int) string {
	switch {
	case days == 0:
		return "D-DAY"
	case days == 1:
		return "D-1"
	default:
		return "due soon"
	}
}
