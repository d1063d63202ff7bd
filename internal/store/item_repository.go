package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dday-keeper/internal/model"
)

var (
	// ErrNotFound means the targeted item vanished, e.g. a race with a
	// concurrent delete. Callers treat it as a no-op failure.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidItem rejects internally-inconsistent items before anything
	// is persisted.
	ErrInvalidItem = errors.New("invalid item")
)

// Ordering selects one of the two query orderings every list variant
// supports.
type Ordering int

const (
	// OrderNewestFirst sorts by creation, newest first, ties broken by
	// insertion order.
	OrderNewestFirst Ordering = iota
	// OrderSoonestFirst sorts dated items by target date ascending;
	// undated items trail in manual order.
	OrderSoonestFirst
)

func (o Ordering) clause() string {
	switch o {
	case OrderSoonestFirst:
		return "CASE WHEN target_date IS NULL THEN 1 ELSE 0 END ASC, target_date ASC, sort_order ASC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// displayOrder is the row ordering contract for the external display
// surface: incomplete before complete, dated by soonest date, undated by
// manual order with id-descending tie-break.
const displayOrder = "is_completed ASC, " +
	"CASE WHEN target_date IS NULL THEN 1 ELSE 0 END ASC, " +
	"target_date ASC, sort_order ASC, id DESC"

// SortOrder pairs an item id with its manual position.
type SortOrder struct {
	ID    uint
	Order int
}

// ItemRepository handles CRUD for items.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func validateItem(item *model.Item) error {
	if item.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	if item.Recurrence == "" {
		item.Recurrence = model.RecurNone
	}
	if !item.Recurrence.Valid() {
		return fmt.Errorf("%w: unknown recurrence %q", ErrInvalidItem, item.Recurrence)
	}
	if item.RecurrenceAnchor != nil && !item.IsRecurring() {
		return fmt.Errorf("%w: recurrence anchor without recurrence", ErrInvalidItem)
	}
	if item.IsCompleted != (item.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at must be set exactly when completed", ErrInvalidItem)
	}
	return nil
}

// Create inserts the item and assigns its id.
func (r *ItemRepository) Create(ctx context.Context, item *model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Update fully replaces the stored item by id. The item kind is fixed at
// creation; an update that would flip dated/undated is rejected.
func (r *ItemRepository) Update(ctx context.Context, item *model.Item) error {
	if item.ID == 0 {
		return ErrNotFound
	}
	if err := validateItem(item); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Item
		if err := tx.First(&existing, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("find item: %w", err)
		}
		if existing.Kind() != item.Kind() {
			return fmt.Errorf("%w: item kind cannot change", ErrInvalidItem)
		}
		item.CreatedAt = existing.CreatedAt
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return nil
	})
}

// Delete removes an item by id.
func (r *ItemRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompletion flips the completion flag and its timestamp in one write,
// so completed_at can never disagree with is_completed.
func (r *ItemRepository) SetCompletion(ctx context.Context, id uint, completed bool, at time.Time) error {
	updates := map[string]interface{}{
		"is_completed": completed,
		"completed_at": nil,
	}
	if completed {
		updates["completed_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set completion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceTargetDate moves a recurring countdown to its next occurrence and
// reopens it, all in one write.
func (r *ItemRepository) AdvanceTargetDate(ctx context.Context, id uint, next time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Updates(map[string]interface{}{
		"target_date":  next,
		"is_completed": false,
		"completed_at": nil,
	})
	if res.Error != nil {
		return fmt.Errorf("advance target date: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAndClone marks the item completed and inserts its next-cycle copy
// in one transaction. A failed insert rolls the completion back, so the
// original is never stranded completed without its successor.
func (r *ItemRepository) CompleteAndClone(ctx context.Context, id uint, at time.Time, clone *model.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Item{}).Where("id = ?", id).Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
		if res.Error != nil {
			return fmt.Errorf("set completion: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := validateItem(clone); err != nil {
			return err
		}
		if err := tx.Create(clone).Error; err != nil {
			return fmt.Errorf("create next cycle: %w", err)
		}
		return nil
	})
}

// SetSubTasks replaces the item's checklist blob.
func (r *ItemRepository) SetSubTasks(ctx context.Context, id uint, blob *string) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Update("sub_tasks", blob)
	if res.Error != nil {
		return fmt.Errorf("set sub tasks: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSortOrders applies a manual reorder as one transaction.
func (r *ItemRepository) SetSortOrders(ctx context.Context, orders []SortOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			if err := tx.Model(&model.Item{}).Where("id = ?", o.ID).
				Update("sort_order", o.Order).Error; err != nil {
				return fmt.Errorf("set sort order for %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (r *ItemRepository) FindByID(ctx context.Context, id uint) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

// ListAll returns every item in the requested ordering.
func (r *ItemRepository) ListAll(ctx context.Context, order Ordering) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Order(order.clause()).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListCountdowns returns dated items only.
func (r *ItemRepository) ListCountdowns(ctx context.Context, order Ordering) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Where("target_date IS NOT NULL").
		Order(order.clause()).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list countdowns: %w", err)
	}
	return items, nil
}

// ListTodos returns undated items only.
func (r *ItemRepository) ListTodos(ctx context.Context, order Ordering) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Where("target_date IS NULL").
		Order(order.clause()).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return items, nil
}

// ListByCategory returns items carrying the given category tag.
func (r *ItemRepository) ListByCategory(ctx context.Context, tag string, order Ordering) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Where("category_tag = ?", tag).
		Order(order.clause()).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list by category: %w", err)
	}
	return items, nil
}

// ListForDisplay returns the rows the external display surface may show:
// open countdowns, open to-dos, and to-dos completed within the last 24
// hours of now.
func (r *ItemRepository) ListForDisplay(ctx context.Context, now time.Time) ([]model.Item, error) {
	cutoff := now.Add(-24 * time.Hour)
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("(target_date IS NOT NULL AND is_completed = ?) OR "+
			"(target_date IS NULL AND (is_completed = ? OR completed_at > ?))",
			false, false, cutoff).
		Order(displayOrder).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list for display: %w", err)
	}
	return items, nil
}

// ListActiveCountdowns returns open dated items for the alert evaluation
// pass.
func (r *ItemRepository) ListActiveCountdowns(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).
		Where("target_date IS NOT NULL AND is_completed = ?", false).
		Order("target_date ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list active countdowns: %w", err)
	}
	return items, nil
}
