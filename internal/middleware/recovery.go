package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/dto/response"
)

// Recovery converts a handler panic into a 500 response instead of a
// dropped connection, logging the stack alongside the request that
// caused it.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error("handler panicked",
				zap.Any("panic", r),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				response.NewError[any]("internal server error"))
		}()
		c.Next()
	}
}
