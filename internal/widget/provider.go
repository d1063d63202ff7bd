// Package widget builds the row snapshot an external display surface pulls
// after a refresh signal. Rows carry a stable identity so the surface can
// diff instead of redrawing everything.
package widget

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"dday-keeper/internal/model"
	"dday-keeper/internal/store"
)

// Mode selects which item kinds the surface shows.
type Mode string

const (
	// ModeCombined interleaves a header before each non-empty group,
	// countdowns first.
	ModeCombined Mode = "combined"
	// ModeCountdownOnly shows dated items without headers.
	ModeCountdownOnly Mode = "countdown"
	// ModeTodoOnly shows undated items without headers.
	ModeTodoOnly Mode = "todo"
)

const (
	headerCountdowns = "D-Day"
	headerTodos      = "To-Do"
)

// Row is one display row: either a synthesized section header or an item.
type Row struct {
	// ID is stable across re-pulls: the item id for item rows, a derived
	// negative value for header rows.
	ID       int64
	IsHeader bool
	Title    string
	Item     *model.Item
	// DaysUntil is the countdown value for dated rows ("D-N"), 0 for
	// undated rows.
	DaysUntil int
	Icon      string
	Color     string
}

// Config carries the surface's display preferences. Opacity and font scale
// are cosmetic pass-throughs: they must never affect row identity or
// ordering.
type Config struct {
	Mode           Mode
	CategoryIcons  map[string]string
	CategoryColors map[string]string
	DefaultIcon    string
	DefaultColor   string
	Opacity        float64
	FontScale      float64
}

// Provider shapes display-eligible items into rows.
type Provider struct {
	repo *store.ItemRepository
	cfg  Config
}

func NewProvider(repo *store.ItemRepository, cfg Config) *Provider {
	if cfg.Mode == "" {
		cfg.Mode = ModeCombined
	}
	if cfg.DefaultIcon == "" {
		cfg.DefaultIcon = "🟢"
	}
	return &Provider{repo: repo, cfg: cfg}
}

// Rows pulls the current snapshot. Re-pulling with no intervening mutation
// returns an identical sequence.
func (p *Provider) Rows(ctx context.Context, now time.Time) ([]Row, error) {
	items, err := p.repo.ListForDisplay(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("pull display items: %w", err)
	}

	var countdowns, todos []model.Item
	for _, item := range items {
		if item.Kind() == model.KindDated {
			countdowns = append(countdowns, item)
		} else {
			todos = append(todos, item)
		}
	}

	switch p.cfg.Mode {
	case ModeCountdownOnly:
		return p.itemRows(countdowns, now), nil
	case ModeTodoOnly:
		return p.itemRows(todos, now), nil
	default:
		var rows []Row
		if len(countdowns) > 0 {
			rows = append(rows, headerRow(headerCountdowns))
			rows = append(rows, p.itemRows(countdowns, now)...)
		}
		if len(todos) > 0 {
			rows = append(rows, headerRow(headerTodos))
			rows = append(rows, p.itemRows(todos, now)...)
		}
		return rows, nil
	}
}

func (p *Provider) itemRows(items []model.Item, now time.Time) []Row {
	rows := make([]Row, 0, len(items))
	for i := range items {
		item := items[i]
		row := Row{
			ID:    int64(item.ID),
			Title: item.Title,
			Item:  &item,
			Icon:  item.Icon(p.cfg.CategoryIcons, p.cfg.DefaultIcon),
			Color: item.Color(p.cfg.CategoryColors, p.cfg.DefaultColor),
		}
		if date, ok := item.DatedOn(); ok {
			row.DaysUntil = DaysUntil(date, now)
		}
		rows = append(rows, row)
	}
	return rows
}

// headerRow derives a stable negative identity from the section label, so
// headers diff like ordinary rows without colliding with item ids.
func headerRow(label string) Row {
	h := fnv.New32a()
	h.Write([]byte(label))
	return Row{
		ID:       -int64(h.Sum32()),
		IsHeader: true,
		Title:    label,
	}
}

// DaysUntil counts whole calendar days from now to the target date:
// 0 on the day itself ("D-DAY"), negative once passed ("D+N").
func DaysUntil(target, now time.Time) int {
	loc := now.Location()
	t := target.In(loc)
	targetMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	nowMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	// Round, not truncate: DST makes some civil days 23 or 25 hours long,
	// and the midnight gap is then not a multiple of 24h.
	return int(math.Round(targetMidnight.Sub(nowMidnight).Hours() / 24))
}
