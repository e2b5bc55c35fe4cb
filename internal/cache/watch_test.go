package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_DeliversChangesFromAnotherWriter(t *testing.T) {
	dir := t.TempDir()
	other, err := NewFileStore(dir)
	require.NoError(t, err)

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Stop()

	changes, unsubscribe := w.Subscribe(KeyPLCRequest)
	defer unsubscribe()
	all, unsubscribeAll := w.Subscribe("")
	defer unsubscribeAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, other.SetItem(KeyDashboard, `{}`))
	require.NoError(t, other.SetItem(KeyPLCRequest, `{}`))

	select {
	case c := <-changes:
		assert.Equal(t, Change{Key: KeyPLCRequest}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case c := <-all:
			seen[c.Key] = true
		case <-deadline:
			t.Fatalf("saw only %v", seen)
		}
	}

	require.NoError(t, other.RemoveItem(KeyPLCRequest))
	select {
	case c := <-changes:
		assert.Equal(t, Change{Key: KeyPLCRequest, Removed: true}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no removal delivered")
	}
}

func TestWatcher_StopClosesSubscriptions(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	ch, unsubscribe := w.Subscribe("")
	w.Stop()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	ch, _ := w.Subscribe("")

	require.Error(t, w.Start(context.Background()))
	require.Error(t, w.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}

	_, open := <-ch
	assert.False(t, open)
	assert.True(t, w.closed)
}
