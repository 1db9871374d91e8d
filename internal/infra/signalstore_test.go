package infra

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

func newTestStore(t *testing.T) (*FileSignalStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileSignalStore(dir, zap.NewNop()), dir
}

func TestFileSignalStore_Path(t *testing.T) {
	store, dir := newTestStore(t)

	assert.Equal(t, filepath.Join(dir, "motion_status"), store.Path(domain.ChannelMotion))
	assert.Equal(t, filepath.Join(dir, "click_positions"), store.Path(domain.ChannelClickTargets))
	assert.Equal(t, filepath.Join(dir, "KILL_SWITCH"), store.Path(domain.ChannelStop))
}

func TestFileSignalStore_PublishThenConsumeOnce(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Publish(domain.ChannelClickTargets, []byte("100,200\n")))

	data, ok := store.Consume(domain.ChannelClickTargets)
	require.True(t, ok)
	assert.Equal(t, "100,200\n", string(data))

	_, ok = store.Consume(domain.ChannelClickTargets)
	assert.False(t, ok, "second consume without a publish must find nothing")
	assert.False(t, store.Exists(domain.ChannelClickTargets))
}

func TestFileSignalStore_PublishOverwrites(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Publish(domain.ChannelMotion, []byte("1.000")))
	require.NoError(t, store.Publish(domain.ChannelMotion, []byte("2.000")))

	data, ok := store.Peek(domain.ChannelMotion)
	require.True(t, ok)
	assert.Equal(t, "2.000", string(data))
}

func TestFileSignalStore_PublishIsWorldWritable(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Publish(domain.ChannelMotion, []byte("1.000")))

	info, err := os.Stat(store.Path(domain.ChannelMotion))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o666), info.Mode().Perm())
}

func TestFileSignalStore_PublishLeavesNoTempFiles(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Publish(domain.ChannelClickTargets, []byte("1,2\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "click_positions", entries[0].Name())
}

func TestFileSignalStore_PublishFailureIsIOError(t *testing.T) {
	store := NewFileSignalStore(filepath.Join(t.TempDir(), "missing", "dir"), zap.NewNop())

	err := store.Publish(domain.ChannelMotion, []byte("1.000"))
	require.Error(t, err)
	assert.Equal(t, domain.KindIO, domain.KindOf(err))
}

func TestFileSignalStore_PeekDoesNotClear(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok := store.Peek(domain.ChannelMotion)
	assert.False(t, ok)

	require.NoError(t, store.Publish(domain.ChannelMotion, []byte("5.500")))
	for i := 0; i < 3; i++ {
		data, ok := store.Peek(domain.ChannelMotion)
		require.True(t, ok)
		assert.Equal(t, "5.500", string(data))
	}
}

func TestFileSignalStore_ConsumeMissing(t *testing.T) {
	store, _ := newTestStore(t)

	data, ok := store.Consume(domain.ChannelClickTargets)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestFileSignalStore_ExistsForStopFlag(t *testing.T) {
	store, _ := newTestStore(t)

	assert.False(t, store.Exists(domain.ChannelStop))
	require.NoError(t, store.Publish(domain.ChannelStop, nil))
	assert.True(t, store.Exists(domain.ChannelStop))
}

func TestFileSignalStore_Prepare(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "signals")
	store := NewFileSignalStore(dir, zap.NewNop())

	// Leftovers of a previous run
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "click_positions"), []byte("9,9\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "KILL_SWITCH"), nil, 0o644))

	require.NoError(t, store.Prepare())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())

	for _, ch := range []domain.Channel{domain.ChannelMotion, domain.ChannelClickTargets} {
		info, err := os.Stat(store.Path(ch))
		require.NoError(t, err, ch)
		assert.Equal(t, int64(0), info.Size(), "stale %s content should be cleared", ch)
		assert.Equal(t, os.FileMode(0o666), info.Mode().Perm())
	}
	assert.False(t, store.Exists(domain.ChannelStop), "stale stop flag should be removed")

	// Idempotent
	require.NoError(t, store.Prepare())
}

func TestFileSignalStore_ConcurrentPublishAndConsume(t *testing.T) {
	store, _ := newTestStore(t)
	positions := []domain.Position{{X: 10, Y: 20}, {X: 30, Y: 40}}
	payload := domain.EncodePositions(positions)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = store.Publish(domain.ChannelClickTargets, payload)
		}
		close(done)
	}()

	// Every observed payload is complete; never torn
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			wg.Wait()
			return
		case <-deadline:
			t.Fatal("publisher did not finish")
		default:
		}
		if data, ok := store.Consume(domain.ChannelClickTargets); ok {
			got, err := domain.DecodePositions(data)
			require.NoError(t, err)
			assert.Equal(t, positions, got)
		}
	}
}
