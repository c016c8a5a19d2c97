package controller

import "errors"

// ErrNotSignedIn is returned by operations that need an identity while the
// controller has none.
var ErrNotSignedIn = errors.New("not signed in")
