package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(cfg))
	r.GET("/api/v1/sessions/calendar.ics", func(c *gin.Context) {
		c.Header("Content-Disposition", `attachment; filename="sessions.ics"`)
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte("BEGIN:VCALENDAR"))
	})
	r.PATCH("/api/v1/sessions/:id/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPreflightAllowsPatchForKnownOrigin(t *testing.T) {
	r := newRouter(Config{AllowedOrigins: []string{"https://coach.example/"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions/abc/status", nil)
	req.Header.Set("Origin", "https://coach.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := serve(r, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://coach.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Request-ID")
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCalendarDownloadExposesDispositionHeader(t *testing.T) {
	r := newRouter(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/calendar.ics", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "Content-Disposition")
	assert.Contains(t, exposed, "X-Expires-At")
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestUnknownOriginGetsNoGrant(t *testing.T) {
	r := newRouter(Config{AllowedOrigins: []string{"https://coach.example"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/calendar.ics", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions/abc/status", nil)
	preflight.Header.Set("Origin", "https://evil.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	assert.Equal(t, http.StatusForbidden, serve(r, preflight).Code)
}

func TestSameOriginRequestPassesThrough(t *testing.T) {
	r := newRouter(Config{AllowedOrigins: []string{"https://coach.example"}})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/calendar.ics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}
