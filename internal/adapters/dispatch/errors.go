package dispatch

import "errors"

var (
	// ErrNothingToSend is returned when a dispatch is requested with no
	// cards and no text.
	ErrNothingToSend = errors.New("nothing to send")
	// ErrNilSink is returned when a dispatcher is built without a reply
	// sink.
	ErrNilSink = errors.New("reply sink is required")
)
