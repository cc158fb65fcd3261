package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Config describes what cross-origin clients may call and read. Empty fields take the defaults below.
type Config struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

var (
	// DefaultMethods are the verbs the API routes use.
	DefaultMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	// DefaultAllowedHeaders are the request headers clients send.
	DefaultAllowedHeaders = []string{"Content-Type", "Accept", "X-Request-ID"}
	// DefaultExposedHeaders lets browsers read download metadata from export and calendar responses.
	DefaultExposedHeaders = []string{"Content-Disposition", "Content-Type", "X-Expires-At", "X-Request-ID"}
)

const defaultMaxAge = 10 * time.Minute

// New returns a CORS middleware. With no allowed origins every origin is accepted.
func New(cfg Config) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origins[normalize(origin)] = struct{}{}
	}

	methods := strings.Join(orDefault(cfg.AllowedMethods, DefaultMethods), ", ")
	allowHeaders := strings.Join(orDefault(cfg.AllowedHeaders, DefaultAllowedHeaders), ", ")
	exposeHeaders := strings.Join(orDefault(cfg.ExposedHeaders, DefaultExposedHeaders), ", ")
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		if origin == "" {
			c.Next()
			return
		}

		_, known := origins[normalize(origin)]
		allowed := allowAll || known
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if !allowed {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if allowAll {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
		}
		header.Set("Access-Control-Expose-Headers", exposeHeaders)

		if preflight {
			header.Set("Access-Control-Allow-Methods", methods)
			header.Set("Access-Control-Allow-Headers", allowHeaders)
			header.Set("Access-Control-Max-Age", maxAgeSeconds)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
