// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/store"
)

// fakeAuth is an in-memory Authenticator. Like the real client, it
// persists the token pair and profile on successful login/refresh.
type fakeAuth struct {
	creds *store.Credentials

	loginRes   *api.AuthResult
	loginErr   error
	loginCalls int

	refreshRes   *api.AuthResult
	refreshErr   error
	refreshCalls int

	signupMsg   string
	signupErr   error
	signupCalls int
}

func (f *fakeAuth) Signup(ctx context.Context, email, password string) (string, error) {
	f.signupCalls++
	return f.signupMsg, f.signupErr
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*api.AuthResult, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.persist(f.loginRes)
	return f.loginRes, nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context) (*api.AuthResult, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.persist(f.refreshRes)
	return f.refreshRes, nil
}

func (f *fakeAuth) Logout() error {
	return f.creds.Clear()
}

func (f *fakeAuth) persist(res *api.AuthResult) {
	if f.creds == nil || res == nil {
		return
	}
	_ = f.creds.SetTokens(res.AccessToken, res.RefreshToken)
	_ = f.creds.SetUser(res.User)
}

func authResult(access, refresh string) *api.AuthResult {
	return &api.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         model.User{ID: "u1", Email: "user@x.com"},
	}
}

func newController(t *testing.T) (*Controller, *fakeAuth, *store.Credentials) {
	t.Helper()
	creds := store.NewCredentials(store.NewMemKV())
	auth := &fakeAuth{creds: creds}
	return NewController(auth, creds), auth, creds
}

func TestInitializeWithEmptyStore(t *testing.T) {
	ctrl, auth, _ := newController(t)

	snap := ctrl.Initialize(context.Background())

	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Nil(t, snap.User)
	assert.Zero(t, auth.refreshCalls)
}

func TestInitializeTrustsCachedAccessToken(t *testing.T) {
	ctrl, auth, creds := newController(t)
	require.NoError(t, creds.SetTokens("access-1", "refresh-1"))
	require.NoError(t, creds.SetUser(model.User{ID: "u1", Email: "user@x.com"}))

	snap := ctrl.Initialize(context.Background())

	assert.Equal(t, StatusAuthenticated, snap.Status)
	require.NotNil(t, snap.User)
	assert.Equal(t, "user@x.com", snap.User.Email)
	// No network call when an access token is cached.
	assert.Zero(t, auth.refreshCalls)
}

func TestInitializeRefreshesWhenOnlyRefreshTokenCached(t *testing.T) {
	ctrl, auth, creds := newController(t)
	require.NoError(t, creds.SetTokens("access-1", "refresh-1"))
	require.NoError(t, creds.SetUser(model.User{ID: "u1", Email: "user@x.com"}))
	require.NoError(t, creds.DropAccessToken())
	auth.refreshRes = authResult("access-2", "refresh-2")

	snap := ctrl.Initialize(context.Background())

	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, 1, auth.refreshCalls)
	assert.Equal(t, "access-2", creds.AccessToken())
}

func TestInitializeClearsCredentialsOnRefreshFailure(t *testing.T) {
	ctrl, auth, creds := newController(t)
	require.NoError(t, creds.SetTokens("access-1", "refresh-1"))
	require.NoError(t, creds.SetUser(model.User{ID: "u1", Email: "user@x.com"}))
	require.NoError(t, creds.DropAccessToken())
	auth.refreshErr = &api.APIError{Status: http.StatusUnauthorized, Message: "revoked"}

	snap := ctrl.Initialize(context.Background())

	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Empty(t, creds.RefreshToken())
	assert.Nil(t, creds.User())
}

func TestInitializeWithPartialCredentials(t *testing.T) {
	ctrl, auth, creds := newController(t)
	// Refresh token without a cached profile.
	require.NoError(t, creds.SetTokens("access-1", "refresh-1"))

	snap := ctrl.Initialize(context.Background())

	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Zero(t, auth.refreshCalls)
	assert.Empty(t, creds.RefreshToken())
}

func TestLoginValidationNeverReachesNetwork(t *testing.T) {
	ctrl, auth, _ := newController(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", "secret1"},
		{"malformed email", "not-an-email", "secret1"},
		{"missing password", "user@x.com", ""},
		{"short password", "user@x.com", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ctrl.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
			// One sentinel identity across packages.
			assert.ErrorIs(t, err, api.ErrValidation)
		})
	}
	assert.Zero(t, auth.loginCalls)
	assert.Equal(t, StatusUnknown, ctrl.Snapshot().Status)
}

func TestLoginSuccess(t *testing.T) {
	ctrl, auth, creds := newController(t)
	auth.loginRes = authResult("a", "b")

	var transitions []Status
	ctrl.OnChange(func(s Snapshot) { transitions = append(transitions, s.Status) })

	require.NoError(t, ctrl.Login(context.Background(), "user@x.com", "secret1"))

	snap := ctrl.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.User)
	assert.Equal(t, "user@x.com", snap.User.Email)
	assert.Equal(t, []Status{StatusChecking, StatusAuthenticated}, transitions)

	assert.Equal(t, "a", creds.AccessToken())
	assert.Equal(t, "b", creds.RefreshToken())
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	ctrl, auth, _ := newController(t)
	auth.loginErr = &api.APIError{Status: http.StatusUnauthorized, Message: "invalid credentials"}

	err := ctrl.Login(context.Background(), "user@x.com", "secret1")
	require.Error(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Nil(t, snap.User)
	assert.Equal(t, "invalid credentials", snap.LastError)
}

func TestSignupNeverChangesState(t *testing.T) {
	ctrl, auth, _ := newController(t)
	auth.signupMsg = "confirmation email sent"

	msg, err := ctrl.Signup(context.Background(), "new@x.com", "secret1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "confirmation email sent", msg)
	assert.Equal(t, 1, auth.signupCalls)
	assert.Equal(t, StatusUnknown, ctrl.Snapshot().Status)

	// Failure does not change state either.
	auth.signupErr = errors.New("email taken")
	_, err = ctrl.Signup(context.Background(), "new@x.com", "secret1", "secret1")
	assert.Error(t, err)
	assert.Equal(t, StatusUnknown, ctrl.Snapshot().Status)
}

func TestSignupPasswordMismatch(t *testing.T) {
	ctrl, auth, _ := newController(t)

	_, err := ctrl.Signup(context.Background(), "new@x.com", "secret1", "secret2")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, auth.signupCalls)
}

func TestLogoutAlwaysEndsUnauthenticated(t *testing.T) {
	ctrl, auth, creds := newController(t)
	auth.loginRes = authResult("a", "b")
	require.NoError(t, ctrl.Login(context.Background(), "user@x.com", "secret1"))

	ctrl.Logout()

	snap := ctrl.Snapshot()
	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Nil(t, snap.User)
	assert.Empty(t, creds.AccessToken())

	// Idempotent.
	ctrl.Logout()
	assert.Equal(t, StatusUnauthenticated, ctrl.Snapshot().Status)
}

func TestHandleSessionExpired(t *testing.T) {
	ctrl, auth, _ := newController(t)
	auth.loginRes = authResult("a", "b")
	require.NoError(t, ctrl.Login(context.Background(), "user@x.com", "secret1"))

	ctrl.HandleSessionExpired()

	snap := ctrl.Snapshot()
	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.Contains(t, snap.LastError, "expired")
}
