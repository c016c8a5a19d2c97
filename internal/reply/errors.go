package reply

import "fmt"

// TransportError is a failed webhook round trip: network failure, non-2xx
// status, or an undecodable body. Callers translate it into a user-visible
// assistant message instead of propagating it.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("webhook transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
