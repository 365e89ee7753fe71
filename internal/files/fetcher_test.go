package files

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
)

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1"), []byte("hello"), 0644))
	fetcher := NewDirFetcher(dir)
	ctx := context.Background()

	content, err := fetcher.GetContent(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = fetcher.GetContent(ctx, "f2")
	assert.True(t, api.IsNotFound(err))

	for _, id := range []string{"", "..", "../f1", `a\b`} {
		_, err = fetcher.GetContent(ctx, id)
		assert.ErrorContains(t, err, "invalid file id", id)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = fetcher.GetContent(cancelled, "f1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirFetcher_Import(t *testing.T) {
	source := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(source, []byte("some notes"), 0644))

	fetcher := NewDirFetcher(filepath.Join(t.TempDir(), "files"))
	handle, err := fetcher.Import(source)
	require.NoError(t, err)
	assert.NotEmpty(t, handle.FileID)
	assert.Equal(t, "notes.txt", handle.Name)
	assert.False(t, handle.HasContent())

	content, err := fetcher.GetContent(context.Background(), handle.FileID)
	require.NoError(t, err)
	assert.Equal(t, "some notes", content)

	_, err = fetcher.Import(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

type slowFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowFetcher) GetContent(_ context.Context, fileID string) (string, error) {
	s.calls.Add(1)
	<-s.release
	return "content of " + fileID, nil
}

func TestSingleFlight_DeduplicatesConcurrentFetches(t *testing.T) {
	slow := &slowFetcher{release: make(chan struct{})}
	fetcher := NewSingleFlight(slow)

	const callers = 5
	var started, wg sync.WaitGroup
	results := make([]string, callers)
	started.Add(callers)
	wg.Add(callers)
	for n := 0; n < callers; n++ {
		go func(n int) {
			defer wg.Done()
			started.Done()
			content, err := fetcher.GetContent(context.Background(), "f1")
			assert.NoError(t, err)
			results[n] = content
		}(n)
	}

	started.Wait()
	assert.Eventually(t, func() bool { return slow.calls.Load() >= 1 }, time.Second, time.Millisecond)
	close(slow.release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "content of f1", r)
	}
	assert.LessOrEqual(t, slow.calls.Load(), int32(callers))

	content, err := fetcher.GetContent(context.Background(), "f2")
	require.NoError(t, err)
	assert.Equal(t, "content of f2", content)
}
