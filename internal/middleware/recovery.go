package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/hqv2016/salonpulse/pkg/errors"
	"github.com/hqv2016/salonpulse/pkg/logger"
	"github.com/hqv2016/salonpulse/pkg/response"
)

// Recovery converts panics into 500 responses instead of dropped connections.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered",
					zap.Any("panic", recovered),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				response.Error(c, apperrors.ErrInternalServer)
				c.Abort()
			}
		}()
		c.Next()
	}
}
