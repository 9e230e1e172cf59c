package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/resilience"
)

var pageBody = strings.Repeat("Happy Hour Monday - Friday 3pm - 6pm $5 cocktails. ", 10)

func fastFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		UserAgent:        "testbot",
		TimeoutSecs:      5,
		MaxRetries:       2,
		HostRequestsPerS: 1000, // effectively unthrottled in tests
		MaxBodyKB:        512,
		RespectRobots:    true,
	}
}

func restaurantFor(url string) model.Restaurant {
	return model.Restaurant{
		Slug:          "test-spot",
		Websites:      []string{url},
		ScrapeEnabled: true,
	}
}

func TestFetchRestaurant_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "testbot", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	f := New(fastFetchConfig(), nil, 0)
	results := f.FetchRestaurant(context.Background(), restaurantFor(srv.URL+"/happy-hour"))

	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, "test-spot", results[0].RestaurantSlug)
	assert.Equal(t, http.StatusOK, results[0].StatusCode)
	assert.Contains(t, results[0].Body, "Happy Hour")
}

func TestFetchRestaurant_ShortCircuitsOnSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	r := model.Restaurant{
		Slug:          "test-spot",
		Websites:      []string{srv.URL + "/a", srv.URL + "/b"},
		ScrapeEnabled: true,
	}

	f := New(fastFetchConfig(), nil, 0)
	results := f.FetchRestaurant(context.Background(), r)

	require.Len(t, results, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchRestaurant_404MovesToNextURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/gone":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte(pageBody))
		}
	}))
	defer srv.Close()

	r := model.Restaurant{
		Slug:          "test-spot",
		Websites:      []string{srv.URL + "/gone", srv.URL + "/menu"},
		ScrapeEnabled: true,
	}

	f := New(fastFetchConfig(), nil, 0)
	results := f.FetchRestaurant(context.Background(), r)

	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.Contains(t, results[0].Error, "404")
	assert.True(t, results[1].OK())
}

func TestFetchRestaurant_Retries5xxOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	f := New(fastFetchConfig(), nil, 0).WithRetryConfig(resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	results := f.FetchRestaurant(context.Background(), restaurantFor(srv.URL+"/menu"))

	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchRestaurant_RobotsDisallowSkipsWithoutRequest(t *testing.T) {
	var pageHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		pageHits.Add(1)
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	f := New(fastFetchConfig(), nil, 0)
	results := f.FetchRestaurant(context.Background(), restaurantFor(srv.URL+"/menu"))

	require.Len(t, results, 1)
	assert.Equal(t, "robots.txt disallow", results[0].Error)
	assert.Equal(t, int32(0), pageHits.Load())
}

type memCache struct {
	bodies map[string]string
	sets   int
}

func (m *memCache) GetCachedBody(_ context.Context, url string) (string, bool, error) {
	b, ok := m.bodies[url]
	return b, ok, nil
}

func (m *memCache) SetCachedBody(_ context.Context, url, body string, _ time.Duration) error {
	m.bodies[url] = body
	m.sets++
	return nil
}

func TestFetchRestaurant_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	cache := &memCache{bodies: map[string]string{}}
	f := New(fastFetchConfig(), cache, time.Hour)

	first := f.FetchRestaurant(context.Background(), restaurantFor(srv.URL+"/menu"))
	require.True(t, first[0].OK())
	assert.Equal(t, 1, cache.sets)

	second := f.FetchRestaurant(context.Background(), restaurantFor(srv.URL+"/menu"))
	require.True(t, second[0].OK())
	assert.Equal(t, int32(1), hits.Load(), "second fetch should come from cache")
}

func TestFetchRestaurant_InvalidURL(t *testing.T) {
	f := New(fastFetchConfig(), nil, 0)
	results := f.FetchRestaurant(context.Background(), restaurantFor("::not a url::"))
	require.Len(t, results, 1)
	assert.Equal(t, "invalid url", results[0].Error)
}
