// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/store"
)

// MinPasswordLength is the shortest password accepted locally. The
// backend enforces its own policy; this check just saves a round trip.
const MinPasswordLength = 6

// ErrValidation marks local input errors that never reach the network.
// The same sentinel the api and items packages use, so callers match
// one identity.
var ErrValidation = api.ErrValidation

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Status is the authentication state of the session.
type Status int

const (
	// StatusUnknown is the state before Initialize has run.
	StatusUnknown Status = iota
	// StatusChecking is the transient state during startup
	// reconciliation or a login in flight.
	StatusChecking
	// StatusAuthenticated means a usable token pair is stored.
	StatusAuthenticated
	// StatusUnauthenticated means the user must log in.
	StatusUnauthenticated
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is the UI-facing projection of the session. It is derived
// from the credential store and the last auth action, never the source
// of truth by itself.
type Snapshot struct {
	Status    Status
	User      *model.User
	LastError string
}

// IsAuthenticated reports whether the session is usable.
func (s Snapshot) IsAuthenticated() bool { return s.Status == StatusAuthenticated }

// IsLoading reports whether an auth action is in flight.
func (s Snapshot) IsLoading() bool { return s.Status == StatusChecking }

// Authenticator is the slice of the API client the controller needs.
type Authenticator interface {
	Signup(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (*api.AuthResult, error)
	RefreshToken(ctx context.Context) (*api.AuthResult, error)
	Logout() error
}

// Controller drives the Unknown -> Checking -> {Authenticated,
// Unauthenticated} machine.
type Controller struct {
	mu     sync.Mutex
	client Authenticator
	creds  *store.Credentials
	log    zerolog.Logger

	status  Status
	user    *model.User
	lastErr string

	onChange func(Snapshot)
}

// NewController creates a session controller over the given API client
// and credential store.
func NewController(client Authenticator, creds *store.Credentials) *Controller {
	return &Controller{
		client: client,
		creds:  creds,
		log:    zerolog.Nop(),
		status: StatusUnknown,
	}
}

// WithLogger sets the controller's logger.
func (c *Controller) WithLogger(log zerolog.Logger) *Controller {
	c.log = log.With().Str("component", "session").Logger()
	return c
}

// OnChange registers a callback fired after every state transition,
// with the new snapshot. The callback runs outside the controller
// lock.
func (c *Controller) OnChange(fn func(Snapshot)) *Controller {
	c.onChange = fn
	return c
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	var user *model.User
	if c.user != nil {
		u := *c.user
		user = &u
	}
	return Snapshot{Status: c.status, User: user, LastError: c.lastErr}
}

func (c *Controller) setState(status Status, user *model.User, errMsg string) {
	c.mu.Lock()
	c.status = status
	c.user = user
	c.lastErr = errMsg
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(snap)
	}
}

// Initialize reconciles in-memory state with the credential store.
//
// With no refresh token or no cached profile the session is
// unauthenticated. A cached access token is trusted without a network
// call; a lone refresh token is exchanged once, and on failure the
// credentials are cleared so the next startup is clean.
func (c *Controller) Initialize(ctx context.Context) Snapshot {
	c.setState(StatusChecking, nil, "")

	refresh := c.creds.RefreshToken()
	user := c.creds.User()
	if refresh == "" || user == nil {
		// A half-written credential set is as good as none.
		if err := c.creds.Clear(); err != nil {
			c.log.Error().Err(err).Msg("failed to clear credentials")
		}
		c.setState(StatusUnauthenticated, nil, "")
		return c.Snapshot()
	}

	if access := c.creds.AccessToken(); access != "" {
		c.log.Debug().Msg("restored session from cached access token")
		c.setState(StatusAuthenticated, user, "")
		return c.Snapshot()
	}

	res, err := c.client.RefreshToken(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("startup refresh failed")
		if cerr := c.creds.Clear(); cerr != nil {
			c.log.Error().Err(cerr).Msg("failed to clear credentials")
		}
		c.setState(StatusUnauthenticated, nil, "")
		return c.Snapshot()
	}

	u := res.User
	c.setState(StatusAuthenticated, &u, "")
	return c.Snapshot()
}

// Login authenticates with email and password. Input problems fail
// with ErrValidation before any network call. On success the session
// is authenticated; on failure it returns to unauthenticated with the
// error message surfaced in the snapshot.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	c.setState(StatusChecking, nil, "")

	res, err := c.client.Login(ctx, email, password)
	if err != nil {
		c.setState(StatusUnauthenticated, nil, errorMessage(err))
		return err
	}

	u := res.User
	c.setState(StatusAuthenticated, &u, "")
	return nil
}

// Signup registers a new account. The session state never changes:
// the backend requires email confirmation before the first login. The
// returned message is the backend's acknowledgement.
func (c *Controller) Signup(ctx context.Context, email, password, confirm string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return c.client.Signup(ctx, email, password)
}

// Logout clears remote-client credentials and local state. It always
// terminates unauthenticated, even when clearing the store fails.
func (c *Controller) Logout() {
	if err := c.client.Logout(); err != nil {
		c.log.Error().Err(err).Msg("failed to clear credentials on logout")
	}
	c.setState(StatusUnauthenticated, nil, "")
}

// HandleSessionExpired drops to unauthenticated after the API client
// reports an irrecoverable auth failure. Wire it to the client's
// session-expired hook; the client has already cleared the store.
func (c *Controller) HandleSessionExpired() {
	c.log.Warn().Msg("session expired")
	c.setState(StatusUnauthenticated, nil, "Your session has expired. Please log in again.")
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrValidation, email)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return nil
}

// errorMessage extracts a user-facing message from an API failure.
func errorMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
