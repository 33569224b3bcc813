package dispatch

import "cardbot/pkg/logger"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the dispatcher's logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}
