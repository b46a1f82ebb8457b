package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCacheAndInvalidate(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.Use(Invalidate(store))
	r.GET("/items", Cache(store, time.Minute), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/fail", func(c *gin.Context) { c.Status(http.StatusConflict) })

	first := serve(r, http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"hits":1}`, first.Body.String())

	second := serve(r, http.MethodGet, "/items", nil)
	assert.JSONEq(t, `{"hits":1}`, second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)

	serve(r, http.MethodPost, "/fail", nil)
	assert.Equal(t, 1, store.ItemCount(), "failed writes keep the cache")

	serve(r, http.MethodPost, "/items", nil)
	assert.Zero(t, store.ItemCount())

	third := serve(r, http.MethodGet, "/items", nil)
	assert.JSONEq(t, `{"hits":2}`, third.Body.String())
}

func TestCache_KeysByPathAndQuery(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	r := gin.New()
	r.GET("/a", Cache(store, time.Minute), func(c *gin.Context) { c.String(http.StatusOK, "A"+c.Query("q")) })
	r.GET("/b", Cache(store, time.Minute), func(c *gin.Context) { c.String(http.StatusOK, "B") })

	// http.NewRequest leaves RequestURI empty, unlike requests read by a server.
	get := func(path string) *httptest.ResponseRecorder {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		assert.NoError(t, err)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, "A", get("/a").Body.String())
	b := get("/b")
	assert.Equal(t, "B", b.Body.String())
	assert.Empty(t, b.Header().Get("X-Cache"))
	assert.Equal(t, "A1", get("/a?q=1").Body.String())

	again := get("/a")
	assert.Equal(t, "A", again.Body.String())
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, 3, store.ItemCount())
}

func TestCacheDisabled(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	r := gin.New()
	r.GET("/x", Cache(store, 0), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	serve(r, http.MethodGet, "/x", nil)
	assert.Zero(t, store.ItemCount())
}

func TestRateLimiter(t *testing.T) {
	testCases := []struct {
		name     string
		ipHeader string
		headers  []http.Header
		expected []int
	}{
		{
			name:     "Burst then reject",
			expected: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:     "Header keys clients apart",
			ipHeader: "X-Real-IP",
			headers: []http.Header{
				{"X-Real-Ip": {"10.0.0.1"}},
				{"X-Real-Ip": {"10.0.0.1"}},
				{"X-Real-Ip": {"10.0.0.2, 172.16.0.1"}},
			},
			expected: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimiter(rate.Every(time.Hour), 2, tc.ipHeader))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			for i, want := range tc.expected {
				var h http.Header
				if i < len(tc.headers) {
					h = tc.headers[i]
				}
				assert.Equal(t, want, serve(r, http.MethodGet, "/x", h).Code, "request %d", i)
			}
		})
	}
}

func TestClientRateLimiter_ReusesBucket(t *testing.T) {
	l := NewClientRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}
