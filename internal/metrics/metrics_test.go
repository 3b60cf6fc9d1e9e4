package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordExchange(t *testing.T) {
	before := testutil.ToFloat64(ExchangesTotal.WithLabelValues("unit", "m"))
	fallbacksBefore := testutil.ToFloat64(FallbacksTotal.WithLabelValues("unit"))

	RecordExchange("unit", "m", 10, 20*time.Millisecond, false)
	RecordExchange("unit", "m", 0, time.Millisecond, true)

	assert.Equal(t, before+2, testutil.ToFloat64(ExchangesTotal.WithLabelValues("unit", "m")))
	assert.Equal(t, fallbacksBefore+1, testutil.ToFloat64(FallbacksTotal.WithLabelValues("unit")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(TokensTotal.WithLabelValues("unit")), float64(10))
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/items/:id", "204"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/items/:id", "204")))
}
