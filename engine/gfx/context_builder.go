package gfx

import (
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/shader"
)

// ContextBuilderOption is a functional option for configuring a Context.
type ContextBuilderOption func(*Context)

// WithLogger sets the logger of the context and every cache and resource it creates.
//
// Parameters:
//   - l: the logger; nil keeps the package logger
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithLogger(l *zap.Logger) ContextBuilderOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName sets the context name attached to log entries.
//
// Parameters:
//   - name: the context name
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithName(name string) ContextBuilderOption {
	return func(c *Context) {
		if name != "" {
			c.name = name
		}
	}
}

// WithUsage sets the default usage hint of buffers created without an explicit one.
//
// Parameters:
//   - usage: the usage hint
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithUsage(usage device.Usage) ContextBuilderOption {
	return func(c *Context) {
		c.usage = usage
	}
}

// WithPreProcessor sets the pre-processor applied to shader sources.
//
// Parameters:
//   - p: the pre-processor
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithPreProcessor(p shader.PreProcessor) ContextBuilderOption {
	return func(c *Context) {
		c.pre = p
	}
}
