package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrlokans/pdflibrary/internal/logger"
)

const traceIDHeader = "X-Trace-ID"

// traceIDMiddleware tags the request logger with a trace id, reusing the
// caller's X-Trace-ID when present, and echoes it in the response.
func traceIDMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(traceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		l := log.GetChildLogger()
		l.UpdateContext(func(ctx zerolog.Context) zerolog.Context {
			return ctx.Str("trace_id", traceID)
		})
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Header(traceIDHeader, traceID)
		c.Next()
	}
}

// requestLogMiddleware logs one line per request after it completes.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		log := logger.FromContext(c.Request.Context())
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("size", c.Writer.Size()).
			Str("ip", c.ClientIP()).
			Send()
	}
}
