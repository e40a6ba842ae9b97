package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotter-org/cs-ai-agent/internal/errordata"
	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/metrics"
	"github.com/slotter-org/cs-ai-agent/internal/requestdata"
)

const RequestIDHeader = "X-Request-ID"

// AttachRequestContext gives every request an id and an error slot.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(RequestIDHeader))
		if err != nil {
			id = uuid.New()
		}
		ctx := c.Request.Context()
		ctx = requestdata.WithRequestData(ctx, &requestdata.RequestData{RequestID: id, StartedAt: time.Now()})
		ctx = errordata.WithErrorData(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, id.String())
		c.Next()
	}
}

// RequestLogger logs each request once it finished and records the HTTP
// metrics. Must run after AttachRequestContext.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	mwLog := log.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		kv := []interface{}{
			"requestID", requestdata.RequestIDFrom(c.Request.Context()),
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", elapsed,
		}
		if ed := errordata.GetErrorData(c.Request.Context()); ed != nil && ed.HasMessage() {
			kv = append(kv, "error", ed.Message)
		}
		switch {
		case status >= 500:
			mwLog.Error("Request failed", kv...)
		case status >= 400:
			mwLog.Warn("Request rejected", kv...)
		default:
			mwLog.Debug("Request served", kv...)
		}
	}
}
