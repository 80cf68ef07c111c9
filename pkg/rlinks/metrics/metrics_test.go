package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/:shortKey", func(c *gin.Context) { c.Status(http.StatusFound) })

	for _, key := range []string{"aaaaaaa", "bbbbbbb"} {
		req, _ := http.NewRequest("GET", "/"+key, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/:shortKey", "302"))
	assert.Equal(t, float64(2), got)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))
}

func TestObserverCounters(t *testing.T) {
	m := New()
	m.LinkCreated()
	m.LinkReused()
	m.LinkReused()
	m.LinkVisited()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.linksCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.linksReused))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redirects))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.LinkCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rlinks_links_created_total 1"))
}

func TestNewTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
