package model

// User is the identity supplied by the identity provider. The ID is the
// provider's opaque user id and scopes all chat session ownership.
// A nil *User anywhere in the app means "not signed in".
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
