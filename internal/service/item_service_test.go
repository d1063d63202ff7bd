package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dday-keeper/internal/model"
	"dday-keeper/internal/store"
	"dday-keeper/internal/syncbus"
)

type fixture struct {
	svc     *ItemService
	items   *store.ItemRepository
	bus     *syncbus.Bus
	refresh <-chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "svc.db")), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	items := store.NewItemRepository(db)
	templates := store.NewTemplateRepository(db)
	bus := syncbus.NewBus("")
	refresh, _ := bus.Register()

	svc := NewItemService(items, templates, bus)
	svc.now = func() time.Time {
		return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return &fixture{svc: svc, items: items, bus: bus, refresh: refresh}
}

func (f *fixture) drainRefresh(t *testing.T) bool {
	t.Helper()
	select {
	case <-f.refresh:
		return true
	default:
		return false
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestCreateItemPublishesRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{Title: "Exam", TargetDate: datePtr(2024, 6, 1)}
	require.NoError(t, f.svc.CreateItem(ctx, &item))
	assert.NotZero(t, item.ID)
	assert.True(t, f.drainRefresh(t))
}

func TestCreateItemDerivesAnchor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monthly := model.Item{Title: "Rent", TargetDate: datePtr(2024, 3, 31), Recurrence: model.RecurMonthly}
	require.NoError(t, f.svc.CreateItem(ctx, &monthly))
	require.NotNil(t, monthly.RecurrenceAnchor)
	assert.Equal(t, 31, *monthly.RecurrenceAnchor)

	weekly := model.Item{Title: "Gym", TargetDate: datePtr(2024, 3, 11), Recurrence: model.RecurWeekly}
	require.NoError(t, f.svc.CreateItem(ctx, &weekly))
	require.NotNil(t, weekly.RecurrenceAnchor)
	assert.Equal(t, int(time.Monday), *weekly.RecurrenceAnchor)
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.CreateItem(ctx, &model.Item{})
	assert.ErrorIs(t, err, store.ErrInvalidItem)
	assert.False(t, f.drainRefresh(t))

	err = f.svc.DeleteItem(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, f.drainRefresh(t))
}

func TestToggleCompletionPlainItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{Title: "One-off"}
	require.NoError(t, f.svc.CreateItem(ctx, &item))
	f.drainRefresh(t)

	got, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, f.drainRefresh(t))

	got, err = f.svc.ToggleCompletion(ctx, item.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	assert.Nil(t, got.CompletedAt)
}

func TestToggleCompletionAdvancesRecurringCountdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{Title: "Workout", TargetDate: datePtr(2024, 3, 10), Recurrence: model.RecurDaily}
	require.NoError(t, f.svc.CreateItem(ctx, &item))

	got, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)

	// Same item, next occurrence, reopened.
	assert.Equal(t, item.ID, got.ID)
	assert.False(t, got.IsCompleted)
	assert.Nil(t, got.CompletedAt)
	require.NotNil(t, got.TargetDate)
	assert.Equal(t, "2024-03-11", got.TargetDate.Format("2006-01-02"))

	all, err := f.items.ListAll(ctx, store.OrderNewestFirst)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestToggleCompletionClonesRecurringTodo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{
		Title:      "Water plants",
		Recurrence: model.RecurWeekly,
		SubTasks:   model.EncodeSubTasks([]model.SubTask{{Title: "ferns", IsChecked: true}}),
	}
	require.NoError(t, f.svc.CreateItem(ctx, &item))

	got, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)

	// The original stays visible as completed-with-timestamp.
	assert.Equal(t, item.ID, got.ID)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)

	// And a fresh clone with a new id is ready for the next cycle.
	all, err := f.items.ListAll(ctx, store.OrderNewestFirst)
	require.NoError(t, err)
	require.Len(t, all, 2)

	clone := all[0]
	assert.Greater(t, clone.ID, item.ID)
	assert.Equal(t, "Water plants", clone.Title)
	assert.False(t, clone.IsCompleted)
	assert.Nil(t, clone.CompletedAt)
	subs := model.DecodeSubTasks(clone.SubTasks)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsChecked)
}

func TestRepeatedCompleteEventClonesOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{Title: "Water plants", Recurrence: model.RecurWeekly}
	require.NoError(t, f.svc.CreateItem(ctx, &item))
	_, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)
	f.drainRefresh(t)

	// A re-sent checkbox event carrying the already-stored state is a
	// no-op: no second clone, no timestamp bump, no refresh.
	before, err := f.items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	got, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(*before.CompletedAt))
	assert.False(t, f.drainRefresh(t))

	all, err := f.items.ListAll(ctx, store.OrderNewestFirst)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUncheckingRecurringTodoNeverClones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{Title: "Water plants", Recurrence: model.RecurWeekly}
	require.NoError(t, f.svc.CreateItem(ctx, &item))
	_, err := f.svc.ToggleCompletion(ctx, item.ID, true)
	require.NoError(t, err)

	all, err := f.items.ListAll(ctx, store.OrderNewestFirst)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Unchecking the completed original is a plain reset: no third item.
	got, err := f.svc.ToggleCompletion(ctx, item.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)

	all, err = f.items.ListAll(ctx, store.OrderNewestFirst)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestToggleSubTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := model.Item{
		Title:    "Shopping",
		SubTasks: model.EncodeSubTasks([]model.SubTask{{Title: "milk"}, {Title: "bread"}}),
	}
	require.NoError(t, f.svc.CreateItem(ctx, &item))
	f.drainRefresh(t)

	require.NoError(t, f.svc.ToggleSubTask(ctx, item.ID, 1))
	assert.True(t, f.drainRefresh(t))

	got, err := f.items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	subs := model.DecodeSubTasks(got.SubTasks)
	require.Len(t, subs, 2)
	assert.False(t, subs[0].IsChecked)
	assert.True(t, subs[1].IsChecked)

	err = f.svc.ToggleSubTask(ctx, item.ID, 5)
	assert.ErrorIs(t, err, store.ErrInvalidItem)
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := model.Item{Title: "a"}
	b := model.Item{Title: "b"}
	c := model.Item{Title: "c"}
	for _, it := range []*model.Item{&a, &b, &c} {
		require.NoError(t, f.svc.CreateItem(ctx, it))
	}

	require.NoError(t, f.svc.Reorder(ctx, []uint{c.ID, a.ID, b.ID}))

	gotC, err := f.items.FindByID(ctx, c.ID)
	require.NoError(t, err)
	gotA, err := f.items.FindByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := f.items.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotC.SortOrder)
	assert.Equal(t, 1, gotA.SortOrder)
	assert.Equal(t, 2, gotB.SortOrder)
}

func TestCreateFromTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.templates.Create(ctx, &model.Template{
		Name:     "plants",
		Title:    "Water plants",
		SubTasks: model.EncodeSubTasks([]model.SubTask{{Title: "ferns", IsChecked: true}}),
	}))

	item, err := f.svc.CreateFromTemplate(ctx, "plants")
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "Water plants", item.Title)
	subs := model.DecodeSubTasks(item.SubTasks)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsChecked)

	_, err = f.svc.CreateFromTemplate(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBackgroundWorkerRunsMutationsAndReportsDone(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.svc.Run(ctx)

	done := make(chan error, 1)
	var created model.Item
	f.svc.Enqueue(func(ctx context.Context) error {
		created = model.Item{Title: "Queued"}
		return f.svc.CreateItem(ctx, &created)
	}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("background mutation never completed")
	}
	assert.NotZero(t, created.ID)
	// The refresh signal precedes the done callback.
	assert.True(t, f.drainRefresh(t))
}
