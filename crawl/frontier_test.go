package crawl_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier_Push(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate URLs", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		assert.True(t, f.Push(siterag.FrontierEntry{URL: "https://example.com/docs/page1"}))
		assert.False(t, f.Push(siterag.FrontierEntry{URL: "https://example.com/docs/page1", Depth: 2}))
		assert.Equal(t, 1, f.Len())
	})

	t.Run("treats normalized forms as one URL", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		assert.True(t, f.Push(siterag.FrontierEntry{URL: "https://Example.com/docs/"}))
		assert.False(t, f.Push(siterag.FrontierEntry{URL: "https://example.com/docs#section"}))
		assert.False(t, f.Push(siterag.FrontierEntry{URL: "https://example.com:443/docs"}))
	})

	t.Run("rejects invalid URLs", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		assert.False(t, f.Push(siterag.FrontierEntry{URL: "mailto:team@example.com"}))
		assert.False(t, f.Push(siterag.FrontierEntry{URL: "/relative"}))
		assert.Equal(t, 0, f.Len())
	})

	t.Run("never requeues a dequeued URL", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()
		f.Push(siterag.FrontierEntry{URL: "https://example.com/a"})
		_, ok := f.Pop()
		require.True(t, ok)

		assert.False(t, f.Push(siterag.FrontierEntry{URL: "https://example.com/a", Depth: 1}))
		assert.True(t, f.Seen("https://example.com/a"))
		assert.Equal(t, 0, f.Len())
	})
}

func TestFrontier_Pop_FIFO(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier()
	f.Push(siterag.FrontierEntry{URL: "https://example.com/", Depth: 0})
	f.Push(siterag.FrontierEntry{URL: "https://example.com/b", Depth: 1})
	f.Push(siterag.FrontierEntry{URL: "https://example.com/a", Depth: 1})

	peek, ok := f.Peek()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", peek.URL)

	var got []string
	for {
		e, ok := f.Pop()
		if !ok {
			break
		}
		got = append(got, e.URL)
	}

	assert.Equal(t, []string{"https://example.com/", "https://example.com/b", "https://example.com/a"}, got)
	_, ok = f.Peek()
	assert.False(t, ok)
}

func TestFrontier_ConcurrentPush(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier()
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				// Every worker pushes the same 100 URLs in a different order.
				url := fmt.Sprintf("https://example.com/page%d", (i+w*13)%100)
				if f.Push(siterag.FrontierEntry{URL: url}) {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), accepted.Load())
	assert.Equal(t, 100, f.Len())
}
