// Package service ties the store, the recurrence engine and the refresh bus
// together: every inbound mutation goes through here, and every successful
// one ends with a refresh signal to the registered display surfaces.
package service

import (
	"context"
	"fmt"
	"time"

	"dday-keeper/internal/model"
	"dday-keeper/internal/recurrence"
	"dday-keeper/internal/store"
	"dday-keeper/internal/syncbus"
)

// ItemService wraps item-related business logic.
type ItemService struct {
	items     *store.ItemRepository
	templates *store.TemplateRepository
	bus       *syncbus.Bus
	now       func() time.Time
	jobs      chan func(context.Context)
}

func NewItemService(items *store.ItemRepository, templates *store.TemplateRepository, bus *syncbus.Bus) *ItemService {
	return &ItemService{
		items:     items,
		templates: templates,
		bus:       bus,
		now:       time.Now,
		jobs:      make(chan func(context.Context), 64),
	}
}

// Run drains the mutation queue until ctx is cancelled. Mutations enqueued
// via Enqueue execute here, serialized, so an interactive caller's thread
// never blocks on the store.
func (s *ItemService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			job(ctx)
		}
	}
}

// Enqueue hands a mutation to the background worker. done (optional) fires
// after the mutation and its refresh signal went out.
func (s *ItemService) Enqueue(fn func(context.Context) error, done func(error)) {
	s.jobs <- func(ctx context.Context) {
		err := fn(ctx)
		if done != nil {
			done(err)
		}
	}
}

// CreateItem validates, fills derived defaults and inserts a new item.
func (s *ItemService) CreateItem(ctx context.Context, item *model.Item) error {
	fillAnchor(item)
	if err := s.items.Create(ctx, item); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// UpdateItem replaces a stored item wholesale.
func (s *ItemService) UpdateItem(ctx context.Context, item *model.Item) error {
	fillAnchor(item)
	if err := s.items.Update(ctx, item); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// DeleteItem removes an item.
func (s *ItemService) DeleteItem(ctx context.Context, id uint) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// ToggleCompletion flips an item's completion state and applies whatever
// the recurrence engine decides: a plain flag write, an in-place date
// advance, or a complete-and-clone. Display-surface checkbox taps dispatch
// through this same path, so there is exactly one completion code path.
func (s *ItemService) ToggleCompletion(ctx context.Context, id uint, completed bool) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if completed == item.IsCompleted {
		// Display surfaces re-send checkbox events; recurrence fires on
		// the transition, never on the repeated state.
		return item, nil
	}

	now := s.now()
	decision := recurrence.Decide(*item, completed, now)

	switch decision.Action {
	case recurrence.ActionAdvanceDate:
		err = s.items.AdvanceTargetDate(ctx, id, decision.NextDate)
	case recurrence.ActionCompleteAndClone:
		clone := decision.Clone
		err = s.items.CompleteAndClone(ctx, id, now, &clone)
	default:
		err = s.items.SetCompletion(ctx, id, completed, now)
	}
	if err != nil {
		return nil, err
	}

	s.bus.Publish()
	return s.items.FindByID(ctx, id)
}

// ToggleSubTask flips one checklist box.
func (s *ItemService) ToggleSubTask(ctx context.Context, id uint, index int) error {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return err
	}

	subs := model.DecodeSubTasks(item.SubTasks)
	if index < 0 || index >= len(subs) {
		return fmt.Errorf("%w: no sub-task at index %d", store.ErrInvalidItem, index)
	}
	subs[index].IsChecked = !subs[index].IsChecked

	if err := s.items.SetSubTasks(ctx, id, model.EncodeSubTasks(subs)); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// Reorder applies a manual ordering of undated items: position in the list
// becomes the sort order.
func (s *ItemService) Reorder(ctx context.Context, ids []uint) error {
	orders := make([]store.SortOrder, 0, len(ids))
	for i, id := range ids {
		orders = append(orders, store.SortOrder{ID: id, Order: i})
	}
	if err := s.items.SetSortOrders(ctx, orders); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// CreateFromTemplate prefills a new to-do from a named preset.
func (s *ItemService) CreateFromTemplate(ctx context.Context, name string) (*model.Item, error) {
	tpl, err := s.templates.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	item := tpl.NewItem()
	if err := s.items.Create(ctx, &item); err != nil {
		return nil, err
	}
	s.bus.Publish()
	return &item, nil
}

// fillAnchor derives the recurrence anchor from the target date when the
// caller did not supply one.
func fillAnchor(item *model.Item) {
	if item.RecurrenceAnchor != nil || !item.IsRecurring() {
		return
	}
	date, ok := item.DatedOn()
	if !ok {
		return
	}
	var anchor int
	switch item.Recurrence {
	case model.RecurWeekly:
		anchor = int(date.Weekday())
	case model.RecurMonthly:
		anchor = date.Day()
	default:
		return
	}
	item.RecurrenceAnchor = &anchor
}
