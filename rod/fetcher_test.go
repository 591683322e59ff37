//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher(rod.WithFetchTimeout(5 * time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fetcher.Close() })

	t.Run("returns rendered HTML and script links", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<div id="content">Loading...</div>
<a href="/static">Static</a>
<script>
document.getElementById('content').textContent = 'JavaScript Rendered';
const a = document.createElement('a');
a.href = '/generated#section';
a.textContent = 'Generated';
document.body.appendChild(a);
</script>
</body>
</html>`))
		}))
		defer srv.Close()

		res, err := fetcher.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, res.HTML, "JavaScript Rendered")
		assert.NotContains(t, res.HTML, "Loading...")
		assert.Equal(t, []string{srv.URL + "/static", srv.URL + "/generated"}, res.Links)
	})

	t.Run("collects links inside shadow roots", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><body>
<nav-menu></nav-menu>
<script>
class NavMenu extends HTMLElement {
  constructor() {
    super();
    this.attachShadow({mode: 'open'}).innerHTML = '<a href="/shadow-link">Shadow</a>';
  }
}
customElements.define('nav-menu', NavMenu);
</script>
</body></html>`))
		}))
		defer srv.Close()

		res, err := fetcher.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Contains(t, res.Links, srv.URL+"/shadow-link")
	})

	t.Run("classifies missing page as permanent", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := fetcher.Fetch(context.Background(), srv.URL)

		assert.Equal(t, siterag.EPERMANENT, siterag.ErrorCode(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetcher.Fetch(ctx, "http://example.com")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFetcher_Fetch_TimeoutIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`<html><body>delayed</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithFetchTimeout(100 * time.Millisecond))
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, siterag.ETRANSIENT, siterag.ErrorCode(err))

	// The session survives the timeout.
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>fast</body></html>`))
	}))
	defer fast.Close()
	res, err := fetcher.Fetch(context.Background(), fast.URL)
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "fast")
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())

	_, err = fetcher.Fetch(context.Background(), "http://example.com")
	require.Error(t, err)
	assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
	assert.Contains(t, siterag.ErrorMessage(err), "closed")
}
