package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff"
)

// Identity headers of the JSON API
const (
	HeaderWebUserID = "X-Tinkoff-Wuid"
	HeaderSessionID = "X-Tinkoff-Session"
)

const identityKey = "identity"

// IdentityMiddleware requires both identity headers and stores them in the
// context for the handlers.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := tinkoff.Identity{
			WebUserID: c.GetHeader(HeaderWebUserID),
			SessionID: c.GetHeader(HeaderSessionID),
		}

		if !id.Complete() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing identity headers"})
			return
		}

		c.Set(identityKey, id)

		c.Next()
	}
}

func identityFrom(c *gin.Context) tinkoff.Identity {
	id, _ := c.MustGet(identityKey).(tinkoff.Identity)
	return id
}

// RequestLogger logs every request once it has been served
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
