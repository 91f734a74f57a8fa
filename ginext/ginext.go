// Package ginext wraps gin for the results dashboard: a route table, request logging
// through logger.Logger and uniform JSON errors.
package ginext

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/e2ekit/logger"
)

type Engine struct {
	*gin.Engine
}

type Context = gin.Context

type HandlerFunc = gin.HandlerFunc

// Route is one entry of the routing table passed to New.
type Route struct {
	Method  string
	Path    string
	Handler HandlerFunc
}

// New creates an engine with middlewares applied in the given order and routes registered.
func New(routes []Route, middlewares ...HandlerFunc) *Engine {
	e := &Engine{gin.New()}
	e.Use(middlewares...)
	for _, r := range routes {
		e.Handle(r.Method, r.Path, r.Handler)
	}
	return e
}

func (e *Engine) Run(addr ...string) error {
	return e.Engine.Run(addr...)
}

// RequestLogger logs one record per request: warn for 4xx, error for 5xx.
func RequestLogger(log logger.Logger) HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := logger.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = logger.ErrorLevel
		case status >= http.StatusBadRequest:
			level = logger.WarnLevel
		}
		log.LogAttrs(c.Request.Context(), level, "http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery turns panics into a 500 JSON error and logs them.
func Recovery(log logger.Logger) HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic in handler", "path", c.FullPath(), "panic", recovered)
		abortWithError(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	})
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
