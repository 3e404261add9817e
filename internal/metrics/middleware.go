package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestMiddleware returns Gin middleware that records request count and
// error count (status >= 400) in the given Metrics.
func RequestMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.IncRequests()
		if c.Writer.Status() >= http.StatusBadRequest {
			m.IncErrors()
		}
	}
}
