// Package api serves a read-only JSON view of job instances.
package api

import (
	"net/http"

	"go.uber.org/zap"
)

// Option configures the API handler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	middleware func(http.Handler) http.Handler
	log        *zap.SugaredLogger
}

// WithMiddleware wraps the handler with middleware (request logging, CORS, etc.).
// The middleware runs before authentication.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return optionFunc(func(c *config) {
		c.middleware = mw
	})
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l *zap.SugaredLogger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.log = l
		}
	})
}
