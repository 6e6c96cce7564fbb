package tui

import "go.uber.org/zap"

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSkipLabel changes the label offered to leave an optional choice empty.
func WithSkipLabel(label string) Option {
	return func(r *Runner) {
		if label != "" {
			r.skipLabel = label
		}
	}
}
