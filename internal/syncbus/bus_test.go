package syncbus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEveryRegisteredSurface(t *testing.T) {
	bus := NewBus("")

	a, stopA := bus.Register()
	b, stopB := bus.Register()
	defer stopA()
	defer stopB()

	bus.Publish()

	select {
	case <-a:
	default:
		t.Fatal("surface a missed the refresh signal")
	}
	select {
	case <-b:
	default:
		t.Fatal("surface b missed the refresh signal")
	}
}

func TestPublishCoalescesAndNeverBlocks(t *testing.T) {
	bus := NewBus("")
	ch, stop := bus.Register()
	defer stop()

	// A burst of mutations with nobody draining must not block and must
	// collapse into a single pending signal.
	for i := 0; i < 5; i++ {
		bus.Publish()
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("expected signals to coalesce")
	default:
	}
	assert.Equal(t, uint64(5), bus.Generation())
}

func TestUnregisteredSurfaceStopsReceiving(t *testing.T) {
	bus := NewBus("")
	ch, stop := bus.Register()
	stop()

	bus.Publish()

	select {
	case <-ch:
		t.Fatal("unregistered surface still signalled")
	default:
	}
}

func TestPublishBumpsMarkerFile(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "refresh.gen")
	bus := NewBus(marker)

	bus.Publish()
	first, err := os.ReadFile(marker)
	require.NoError(t, err)

	bus.Publish()
	second, err := os.ReadFile(marker)
	require.NoError(t, err)

	assert.NotEqual(t, string(first), string(second))
}

func TestWatcherSignalsOnMarkerBump(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "refresh.gen")
	bus := NewBus(marker)

	w, err := NewWatcher(marker, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	bus.Publish()

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never saw the marker bump")
	}
}
