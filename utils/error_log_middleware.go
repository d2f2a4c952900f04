package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errorLogWriter struct {
	gin.ResponseWriter
	gc  *gin.Context
	log zerolog.Logger
}

func (w errorLogWriter) Write(b []byte) (int, error) {
	status := w.gc.Writer.Status()
	if status >= 400 {
		w.log.Debug().Int("status", status).Str("body", string(b)).Msg("error response")
	}
	return w.ResponseWriter.Write(b)
}

// ErrorLogMiddleware doesn't work with GZIP
func ErrorLogMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		blw := &errorLogWriter{gc: c, ResponseWriter: c.Writer, log: log}
		c.Writer = blw
		c.Next()
	}
}
