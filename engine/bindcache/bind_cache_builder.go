package bindcache

import "go.uber.org/zap"

// BindCacheBuilderOption is a functional option for configuring a BindCache.
type BindCacheBuilderOption func(*bindCache)

// WithLogger sets the logger used for bind decisions and tolerated misuse.
//
// Parameters:
//   - l: the logger; nil keeps the package logger
//
// Returns:
//   - BindCacheBuilderOption: a function that applies the logger to a bindCache
func WithLogger(l *zap.Logger) BindCacheBuilderOption {
	return func(c *bindCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBindHook registers fn to run after every device bind or unbind the cache issues,
// including those issued by Restore and Forget. fn receives nil for an unbind.
// Assume does not run the hook.
//
// Parameters:
//   - fn: the hook
//
// Returns:
//   - BindCacheBuilderOption: a function that applies the hook to a bindCache
func WithBindHook(fn func(Bindable)) BindCacheBuilderOption {
	return func(c *bindCache) {
		c.onBind = fn
	}
}
