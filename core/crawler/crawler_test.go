package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reward-tracker/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>J Card Rates</title></head><body>
<h1>J Card Rewards</h1>
<p>3% cashback on overseas spend.</p>
<table><tr><th>Category</th><th>Rate</th></tr>
<tr><td>Dining</td><td>5%</td></tr></table>
</body></html>`

func TestFetch_ChangedOnFirstCrawl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "reward-tracker/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c := New(Config{})
	res, err := c.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)

	assert.Equal(t, reconcile.FetchChanged, res.Status)
	assert.NotEmpty(t, res.Content)
	assert.False(t, res.Fingerprint.IsZero())
	assert.Contains(t, res.Content, "J Card Rewards")
	assert.Contains(t, res.Content, "Dining")
}

func TestFetch_UnchangedShortCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c := New(Config{})

	first, err := c.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.Equal(t, reconcile.FetchChanged, first.Status)

	// Second fetch of identical content against the first fingerprint.
	second, err := c.Fetch(context.Background(), srv.URL, first.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, reconcile.FetchUnchanged, second.Status)
	assert.Empty(t, second.Content, "unchanged fetch carries no content")
}

func TestFetch_DeterministicFingerprint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c := New(Config{})

	first, err := c.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Content, second.Content)
}

func TestFetch_ContentChangeChangesFingerprint(t *testing.T) {
	page := samplePage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := New(Config{})

	first, err := c.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)

	page = samplePage + "<p>Promotion ends 2026-12-31.</p>"
	second, err := c.Fetch(context.Background(), srv.URL, first.Fingerprint)
	require.NoError(t, err)

	assert.Equal(t, reconcile.FetchChanged, second.Status)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{})
	res, err := c.Fetch(context.Background(), srv.URL, "")
	assert.Nil(t, res)

	var fe *reconcile.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Detail, "http 503")
	assert.False(t, fe.Timeout)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c := New(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := c.Fetch(ctx, srv.URL, "")
	assert.Nil(t, res)

	var fe *reconcile.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Timeout)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	c := New(Config{TimeoutSeconds: 1})
	res, err := c.Fetch(context.Background(), "http://127.0.0.1:1/nope", "")
	assert.Nil(t, res)

	var fe *reconcile.FetchError
	assert.ErrorAs(t, err, &fe)
}
