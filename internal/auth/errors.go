package auth

// Error is an identity operation failure. Message is safe to show the user
// inline; Err retains the provider error for logs.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
