// Package recurrence decides what happens to an item when its completion
// state flips. It is pure: no store access, no clock reads beyond the
// caller-supplied now.
package recurrence

import (
	"time"

	"dday-keeper/internal/model"
)

// Action is the engine's verdict for a completion toggle.
type Action int

const (
	// ActionComplete marks the item completed with a timestamp, or resets
	// it when un-checking. No recurrence consequence.
	ActionComplete Action = iota
	// ActionAdvanceDate resets the same item in place with its target date
	// shifted one period forward. Applies to dated recurring items, which
	// have a single occurrence advancing through time.
	ActionAdvanceDate
	// ActionCompleteAndClone marks the item completed and creates an
	// independent copy, open and with every checklist box unchecked.
	// Applies to undated recurring items, which need both a visible "just
	// done" record and a fresh one for the next cycle.
	ActionCompleteAndClone
)

// Decision carries the action plus its payload.
type Decision struct {
	Action   Action
	NextDate time.Time  // set for ActionAdvanceDate
	Clone    model.Item // set for ActionCompleteAndClone
}

// Decide maps a completion transition to the follow-up the store must
// apply. Callers only invoke it when completed actually differs from the
// stored flag. Un-checking never fires recurrence logic, and a dated-flagged
// item that somehow lost its date degrades to a plain completion rather
// than failing.
func Decide(item model.Item, completed bool, now time.Time) Decision {
	if !completed || !item.IsRecurring() {
		return Decision{Action: ActionComplete}
	}

	if date, ok := item.DatedOn(); ok {
		return Decision{
			Action:   ActionAdvanceDate,
			NextDate: NextDate(item.Recurrence, date, item.RecurrenceAnchor),
		}
	}

	clone := item
	clone.ID = 0
	clone.IsCompleted = false
	clone.CompletedAt = nil
	clone.SubTasks = model.UncheckedSubTasks(item.SubTasks)
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}
	return Decision{Action: ActionCompleteAndClone, Clone: clone}
}

// NextDate shifts from one period forward. Monthly and yearly shifts clamp
// the day to the target month's length, so an item anchored on the 31st
// lands on the 30th (or 28th/29th) when the next month is shorter.
func NextDate(kind model.Recurrence, from time.Time, anchor *int) time.Time {
	switch kind {
	case model.RecurDaily:
		return from.AddDate(0, 0, 1)
	case model.RecurWeekly:
		return from.AddDate(0, 0, 7)
	case model.RecurMonthly:
		day := from.Day()
		if anchor != nil && *anchor >= 1 && *anchor <= 31 {
			day = *anchor
		}
		year, month, _ := from.Date()
		month++
		return clampedDate(year, month, day, from)
	case model.RecurYearly:
		year, month, _ := from.Date()
		return clampedDate(year+1, month, from.Day(), from)
	default:
		return from
	}
}

func clampedDate(year int, month time.Month, day int, src time.Time) time.Time {
	if max := daysInMonth(month, year); day > max {
		day = max
	}
	h, m, s := src.Clock()
	return time.Date(year, month, day, h, m, s, src.Nanosecond(), src.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
