package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func RecoveryMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("caught panic",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				c.Status(fiber.StatusInternalServerError)
			}
		}()
		return c.Next()
	}
}
