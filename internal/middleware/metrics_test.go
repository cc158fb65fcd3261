package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method string
	path   string
	status int
}

type observerStub struct {
	calls []observed
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{method, path, status})
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/sessions/abc", "/nowhere"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
	}

	require.Len(t, observer.calls, 2)
	assert.Equal(t, observed{http.MethodGet, "/sessions/:id", http.StatusNoContent}, observer.calls[0])
	assert.Equal(t, observed{http.MethodGet, "unmatched", http.StatusNotFound}, observer.calls[1])
}

func TestMetricsWithoutObserver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsSkipsStreamRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer, "/api/v1/events"))
	r.GET("/api/v1/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/events", "/api/v1/sessions"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.calls, 1)
	assert.Equal(t, "/api/v1/sessions", observer.calls[0].path)
}
