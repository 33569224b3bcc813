package api

import "errors"

// ErrNoStatusProvider is returned when /status is served without a
// queue to report on.
var ErrNoStatusProvider = errors.New("no status provider configured")
