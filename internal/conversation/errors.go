package conversation

import "errors"

// Context errors are returned before any backend call is made. They are not
// retryable without reconfiguring the manager.
var (
	// ErrUnsatisfiableContext is returned when the working list holds nothing
	// but orphaned tool results.
	ErrUnsatisfiableContext = errors.New("unsatisfiable context: only orphaned tool results")

	// ErrContextTooSmall is returned when not even the newest message fits the
	// step and token ceilings.
	ErrContextTooSmall = errors.New("context too small: no message fits the conversation limits")

	// ErrInvalidLimit is returned by setters given a negative limit.
	ErrInvalidLimit = errors.New("limit must not be negative")
)
