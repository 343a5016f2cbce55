package sub

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/logger"

	"github.com/gin-gonic/gin"
)

// recoveryMiddleware 捕获 handler 中的 panic，断开的连接只记录不打印堆栈
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && isBrokenPipe(err) {
				logger.Errorf("[PANIC RECOVER] Broken pipe: %v", err)
				c.Abort()
				return
			}
			if config.IsDebug() {
				logger.Errorf("[PANIC RECOVER] panic recovered:\nError: %v\nStack: %s", rec, debug.Stack())
			} else {
				logger.Errorf("[PANIC RECOVER] panic recovered: %v", rec)
			}
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	var se *os.SyscallError
	if !errors.As(err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

// domainValidatorMiddleware 只放行 Host 与 domain 一致的请求
func domainValidatorMiddleware(domain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")

		if !strings.EqualFold(host, strings.Trim(domain, "[]")) {
			logger.Warningf("Domain validation failed: expected %s, got %s from %s",
				domain, host, c.ClientIP())
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
