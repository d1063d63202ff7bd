package model

import "time"

// Template is a named preset used to prefill new to-do items.
type Template struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Title     string
	Icon      *string
	Color     *string
	SubTasks  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewItem builds a fresh to-do from the template. Checklist boxes start
// unchecked regardless of how the template blob was saved.
func (t *Template) NewItem() Item {
	return Item{
		Title:       t.Title,
		CustomIcon:  t.Icon,
		CustomColor: t.Color,
		Recurrence:  RecurNone,
		SubTasks:    UncheckedSubTasks(t.SubTasks),
	}
}
