package app

import "cardbot/pkg/logger"

// Option configures a Service.
type Option func(*Service)

// WithEndpoint maps a command to its pipeline endpoint URL.
func WithEndpoint(cmd Command, url string) Option {
	return func(s *Service) {
		if url != "" {
			s.endpoints[cmd] = url
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}
