package model

import "time"

// Recurrence tells how an item regenerates when it is completed.
type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
	RecurYearly  Recurrence = "yearly"
)

// Valid reports whether r is one of the known recurrence kinds.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

// Kind discriminates dated countdowns from undated to-dos. The store keeps a
// single nullable date column; business logic goes through Kind so the
// nil-checks stay in one place.
type Kind int

const (
	// KindDated is a countdown ("D-Day") item with a target date.
	KindDated Kind = iota
	// KindUndated is a to-do item without a date.
	KindUndated
)

// Item is a single entry in the planner: either a dated countdown or an
// undated to-do, decided once at creation and never flipped by edits.
type Item struct {
	ID               uint `gorm:"primaryKey"`
	Title            string
	TargetDate       *time.Time
	Memo             string
	IsCompleted      bool `gorm:"default:false"`
	CompletedAt      *time.Time
	CategoryTag      string `gorm:"index"`
	CustomIcon       *string
	CustomColor      *string
	Recurrence       Recurrence `gorm:"default:none"`
	RecurrenceAnchor *int
	SortOrder        int `gorm:"default:0"`
	SubTasks         *string
	GroupName        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Kind returns the item kind derived from the date column.
func (i *Item) Kind() Kind {
	if i.TargetDate != nil {
		return KindDated
	}
	return KindUndated
}

// DatedOn returns the target date for dated items.
func (i *Item) DatedOn() (time.Time, bool) {
	if i.TargetDate == nil {
		return time.Time{}, false
	}
	return *i.TargetDate, true
}

// IsRecurring reports whether the item carries a recurrence policy.
func (i *Item) IsRecurring() bool {
	return i.Recurrence != "" && i.Recurrence != RecurNone
}

// Icon resolves the display icon: custom value first, then the category
// default, then the given fallback.
func (i *Item) Icon(categoryIcons map[string]string, fallback string) string {
	if i.CustomIcon != nil && *i.CustomIcon != "" {
		return *i.CustomIcon
	}
	if icon, ok := categoryIcons[i.CategoryTag]; ok && icon != "" {
		return icon
	}
	return fallback
}

// Color resolves the display color with the same fallback chain as Icon.
func (i *Item) Color(categoryColors map[string]string, fallback string) string {
	if i.CustomColor != nil && *i.CustomColor != "" {
		return *i.CustomColor
	}
	if color, ok := categoryColors[i.CategoryTag]; ok && color != "" {
		return color
	}
	return fallback
}
