// Based on https://github.com/zsais/go-gin-prometheus/blob/master/middleware.go, trimmed down to
// what the gateway needs.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var reqCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_http_requests_total",
	Help: "How many HTTP requests processed, partitioned by status code, method and route",
}, []string{"code", "method", "route"})

var reqDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "gateway_http_request_duration_seconds",
	Help: "The HTTP request latencies in seconds",
}, []string{"code", "method", "route"})

var respSize = prometheus.NewSummary(prometheus.SummaryOpts{
	Name: "gateway_http_response_size_bytes",
	Help: "The HTTP response sizes in bytes",
})

var reqSize = prometheus.NewSummary(prometheus.SummaryOpts{
	Name: "gateway_http_request_size_bytes",
	Help: "The HTTP request sizes in bytes",
})

// routeLabel keeps label cardinality bounded, proxied paths are all folded into one label.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "proxy"
}

func PromReqMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqSz := float64(computeApproximateRequestSize(c.Request))

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Second)
		resSz := float64(c.Writer.Size())

		route := routeLabel(c)
		reqDur.WithLabelValues(status, c.Request.Method, route).Observe(elapsed)
		reqCount.WithLabelValues(status, c.Request.Method, route).Inc()
		reqSize.Observe(reqSz)
		if resSz > 0 {
			respSize.Observe(resSz)
		}
	}
}

func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}

	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)

	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
