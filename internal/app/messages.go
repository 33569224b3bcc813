package app

// User-facing reply texts. Failures always surface as one of these
// short messages, never as raw errors.
const (
	msgBusy     = "I'm handling too many requests right now. Please try again in a moment."
	msgTimeout  = "That request took too long and was cancelled. Please try again."
	msgGeneric  = "Something went wrong while handling your request. Please try again later."
	msgNotFound = "I couldn't find anything matching your request."
)
