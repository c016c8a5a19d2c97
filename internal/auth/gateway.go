// Package auth wraps the identity provider behind a small gateway that owns
// the current-user state and notifies subscribers on every sign-in/sign-out.
package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"revot.app/chat/common/id"
	"revot.app/chat/core/config"
	"revot.app/chat/internal/model"
)

// ProviderAPI is the slice of the WorkOS user management API the gateway
// needs. Narrowed to an interface so tests can script provider behavior.
type ProviderAPI interface {
	AuthenticateWithPassword(ctx context.Context, opts usermanagement.AuthenticateWithPasswordOpts) (usermanagement.AuthenticateResponse, error)
	CreateUser(ctx context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error)
}

type workosAPI struct{}

func (workosAPI) AuthenticateWithPassword(ctx context.Context, opts usermanagement.AuthenticateWithPasswordOpts) (usermanagement.AuthenticateResponse, error) {
	return usermanagement.AuthenticateWithPassword(ctx, opts)
}

func (workosAPI) CreateUser(ctx context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error) {
	return usermanagement.CreateUser(ctx, opts)
}

// Gateway owns the signed-in identity. At most one user is current at a
// time; nil means signed out. Consumers subscribe to be told when that
// changes and must treat a nil notification as a full state teardown.
type Gateway struct {
	clientID string
	api      ProviderAPI

	mu      sync.Mutex
	current *model.User
	subs    map[int64]func(*model.User)
}

// New creates a Gateway talking to WorkOS user management.
func New(cfg config.WorkOSConfig) *Gateway {
	usermanagement.SetAPIKey(cfg.APIKey)
	return NewWithProvider(cfg.ClientID, workosAPI{})
}

// NewWithProvider creates a Gateway with an explicit provider implementation.
func NewWithProvider(clientID string, api ProviderAPI) *Gateway {
	return &Gateway{
		clientID: clientID,
		api:      api,
		subs:     make(map[int64]func(*model.User)),
	}
}

// CurrentUser returns the signed-in user, or nil when signed out.
func (g *Gateway) CurrentUser() *model.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Subscribe registers a callback fired on every subsequent identity change.
// The returned cancel function releases the subscription; callers must
// invoke it on teardown.
func (g *Gateway) Subscribe(fn func(*model.User)) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	subID := id.New()
	g.subs[subID] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, subID)
	}
}

// SignIn authenticates with email and password. On success the user becomes
// current and subscribers are notified exactly once.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	resp, err := g.api.AuthenticateWithPassword(ctx, usermanagement.AuthenticateWithPasswordOpts{
		ClientID: g.clientID,
		Email:    email,
		Password: password,
	})
	if err != nil {
		slog.WarnContext(ctx, "sign-in rejected", "error", err, "email", email)
		return nil, &Error{Message: "invalid email or password", Err: err}
	}

	user := &model.User{
		ID:    resp.User.ID,
		Email: resp.User.Email,
	}

	g.setCurrent(user)
	slog.InfoContext(ctx, "user signed in", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// SignUp creates an account and immediately authenticates it. Policy
// violations (weak password, duplicate account) surface as *Error with the
// provider's message for inline display.
func (g *Gateway) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	if _, err := g.api.CreateUser(ctx, usermanagement.CreateUserOpts{
		Email:    email,
		Password: password,
	}); err != nil {
		slog.WarnContext(ctx, "sign-up rejected", "error", err, "email", email)
		return nil, &Error{Message: err.Error(), Err: err}
	}

	return g.SignIn(ctx, email, password)
}

// SignOut clears the current identity and notifies subscribers with nil.
// Signing out while already signed out is a no-op.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	wasSignedIn := g.current != nil
	g.mu.Unlock()

	if !wasSignedIn {
		return nil
	}

	g.setCurrent(nil)
	slog.InfoContext(ctx, "user signed out")
	return nil
}

// setCurrent swaps the current user and notifies subscribers outside the
// lock, so callbacks may call back into the gateway.
func (g *Gateway) setCurrent(user *model.User) {
	g.mu.Lock()
	g.current = user
	callbacks := make([]func(*model.User), 0, len(g.subs))
	for _, fn := range g.subs {
		callbacks = append(callbacks, fn)
	}
	g.mu.Unlock()

	for _, fn := range callbacks {
		fn(user)
	}
}
