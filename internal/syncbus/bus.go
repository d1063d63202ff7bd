// Package syncbus propagates "your data changed, re-pull now" signals from
// the store's mutation path to display surfaces. In-process surfaces drain a
// registered channel; the out-of-process surface watches an on-disk
// generation marker, since it shares no memory with the core.
package syncbus

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
)

// Bus fans a refresh signal out to every registered surface.
type Bus struct {
	mu         sync.Mutex
	nextID     int
	subs       map[int]chan struct{}
	markerPath string
	generation uint64
}

// NewBus creates a bus. markerPath may be empty when no out-of-process
// surface is configured.
func NewBus(markerPath string) *Bus {
	return &Bus{
		subs:       make(map[int]chan struct{}),
		markerPath: markerPath,
	}
}

// Register subscribes a surface and returns its signal channel together
// with an unregister func. The channel holds at most one pending signal;
// bursts of mutations coalesce into a single re-pull.
func (b *Bus) Register() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish signals every registered surface and bumps the on-disk marker.
// It never blocks on a slow surface, and re-publishing with no intervening
// mutation only asks surfaces to repaint the same data.
func (b *Bus) Publish() {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	path := b.markerPath
	b.mu.Unlock()

	if path == "" {
		return
	}
	if err := writeMarker(path, gen); err != nil {
		log.Printf("[warn] refresh marker: %v", err)
	}
}

// Generation returns the number of publishes so far.
func (b *Bus) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func writeMarker(path string, gen uint64) error {
	if err := os.WriteFile(path, []byte(strconv.FormatUint(gen, 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
