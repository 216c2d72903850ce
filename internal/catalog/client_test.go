package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &Client{
		BaseURL: srv.URL,
		HTTP:    srv.Client(),
		Limit:   10,
	}, srv
}

func TestSearch_MapsUpstreamResponse(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, "berserk", r.URL.Query().Get("q"))
		assert.Equal(t, "true", r.URL.Query().Get("sfw"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{
				"mal_id": 2,
				"title": "Berserk",
				"title_english": "Berserk",
				"images": {"jpg": {
					"image_url": "https://cdn.example/2.jpg",
					"large_image_url": "https://cdn.example/2l.jpg"
				}},
				"volumes": 41,
				"publishing": true,
				"synopsis": "Guts.",
				"authors": [{"mal_id": 1868, "name": "Miura, Kentarou"}],
				"score": 9.47
			},
			{"mal_id": 0, "title": "broken entry skipped"}
		]}`))
	})
	defer srv.Close()

	results := client.Search(context.Background(), "berserk")
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, int64(2), got.MalID)
	assert.Equal(t, "Berserk", got.Title)
	assert.Equal(t, "https://cdn.example/2.jpg", got.CoverURL)
	assert.Equal(t, "https://cdn.example/2l.jpg", got.CoverURLLarge)
	require.NotNil(t, got.Volumes)
	assert.Equal(t, 41, *got.Volumes)
	assert.True(t, got.Publishing)
	assert.Equal(t, []string{"Miura, Kentarou"}, got.Authors)
	require.NotNil(t, got.Score)
	assert.InDelta(t, 9.47, *got.Score, 0.001)
}

func TestSearch_ShortQueryNeverCallsUpstream(t *testing.T) {
	called := false
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer srv.Close()

	assert.Empty(t, client.Search(context.Background(), "a"))
	assert.Empty(t, client.Search(context.Background(), ""))
	assert.False(t, called)
}

func TestSearch_UpstreamErrorDegradesToEmpty(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	defer srv.Close()

	results := client.Search(context.Background(), "one piece")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_UnreachableUpstreamDegradesToEmpty(t *testing.T) {
	client := &Client{
		BaseURL: "http://127.0.0.1:1",
		HTTP:    &http.Client{Timeout: 200 * time.Millisecond},
		Limit:   10,
	}
	assert.Empty(t, client.Search(context.Background(), "naruto"))
}

func TestSearch_RespectsLimit(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"mal_id": 1, "title": "A"},
			{"mal_id": 2, "title": "B"},
			{"mal_id": 3, "title": "C"}
		]}`))
	})
	defer srv.Close()
	client.Limit = 2

	results := client.Search(context.Background(), "abc")
	assert.Len(t, results, 2)
}
