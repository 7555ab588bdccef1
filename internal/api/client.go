// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/avelinek/parley/internal/store"
)

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps response bodies to keep a misbehaving
	// server from exhausting memory.
	maxResponseSize = 10 * 1024 * 1024

	// expirySkew treats a token lapsing within this window as already
	// expired, so a request does not leave with a token that dies in
	// transit.
	expirySkew = 30 * time.Second

	userAgent = "parley/0.1.0"
)

// Client talks to the parley backend.
//
// All authenticated traffic goes through DoAuthenticated, which owns
// the 401 -> refresh -> retry-once path. Refreshes are deduplicated
// with a singleflight group keyed by "refresh": the group admits one
// in-flight call and hands its result to every waiter, and the slot is
// free again once the call settles, so a later 401 can start a fresh
// refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *store.Credentials
	log        zerolog.Logger

	refreshGroup singleflight.Group
	limiter      *rate.Limiter

	onSessionExpired func()
}

// NewClient creates a client for the backend at baseURL, persisting
// tokens through creds.
func NewClient(baseURL string, creds *store.Credentials) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		creds:      creds,
		log:        zerolog.Nop(),
		// Paces outbound requests; generous enough to never bite an
		// interactive user.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger for request/response logging. Bodies and
// headers are never logged.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log.With().Str("component", "api").Logger()
	return c
}

// WithRateLimit overrides the outbound request pacing.
func (c *Client) WithRateLimit(limit rate.Limit, burst int) *Client {
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

// OnSessionExpired registers a hook invoked when the session becomes
// irrecoverable (refresh failed, or a 401 survived the retry). The
// hook runs after the stored credentials have been cleared.
func (c *Client) OnSessionExpired(fn func()) *Client {
	c.onSessionExpired = fn
	return c
}

// Signup registers a new account. No credentials are stored: the
// backend requires email confirmation before the first login.
func (c *Client) Signup(ctx context.Context, email, password string) (string, error) {
	var out signupResponse
	err := c.doJSON(ctx, http.MethodPost, endpointSignup, credentialsRequest{Email: email, Password: password}, "", &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login authenticates with email and password. On success the token
// pair and the user profile are persisted.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.doJSON(ctx, http.MethodPost, endpointLogin, credentialsRequest{Email: email, Password: password}, "", &out)
	if err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := c.storeAuth(&out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// RefreshToken exchanges the stored refresh token for a new token
// pair, persisting it on success. Fails with ErrNoRefreshToken when
// none is stored. At most one refresh call is on the wire at any
// instant; concurrent callers wait for and share the in-flight result.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResult, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuthResult), nil
}

func (c *Client) doRefresh(ctx context.Context) (*AuthResult, error) {
	refresh := c.creds.RefreshToken()
	if refresh == "" {
		return nil, ErrNoRefreshToken
	}

	var out AuthResult
	err := c.doJSON(ctx, http.MethodPost, endpointRefresh, refreshRequest{RefreshToken: refresh}, "", &out)
	if err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if err := c.storeAuth(&out); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	c.log.Debug().Msg("token pair refreshed")
	return &out, nil
}

func (c *Client) storeAuth(res *AuthResult) error {
	if err := c.creds.SetTokens(res.AccessToken, res.RefreshToken); err != nil {
		return err
	}
	return c.creds.SetUser(res.User)
}

// Logout clears all persisted credential fields. It never touches the
// network and is safe to call repeatedly.
func (c *Client) Logout() error {
	return c.creds.Clear()
}

// Chat sends one conversation turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.DoAuthenticated(ctx, http.MethodPost, endpointChat, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory deletes the server-side history for a chat session.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) (*StatusResponse, error) {
	var out StatusResponse
	err := c.DoAuthenticated(ctx, http.MethodDelete, endpointClearHistory, clearHistoryRequest{SessionID: sessionID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearUserData deletes all server-side stored data for a user.
func (c *Client) ClearUserData(ctx context.Context, userID string) (*StatusResponse, error) {
	var out StatusResponse
	err := c.DoAuthenticated(ctx, http.MethodDelete, endpointClearUserData, clearUserDataRequest{UserID: userID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DoAuthenticated performs a bearer-authenticated JSON request.
//
// A missing or expired access token is refreshed before the request
// goes out. If the server still answers 401, one refresh-and-retry is
// attempted; a second 401, or a refresh failure, is terminal: the
// stored credentials are cleared, the session-expired hook fires, and
// the call fails with ErrAuthExpired.
func (c *Client) DoAuthenticated(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	access := c.creds.AccessToken()
	if access == "" || tokenExpired(access) {
		res, err := c.RefreshToken(ctx)
		if err != nil {
			// A caller-cancelled refresh says nothing about the
			// session; keep the credentials.
			if ctxDone(err) {
				return err
			}
			c.expireSession()
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
		access = res.AccessToken
	}

	err := c.doJSON(ctx, method, endpoint, payload, access, out)
	if !isUnauthorized(err) {
		return err
	}

	res, rerr := c.RefreshToken(ctx)
	if rerr != nil {
		if ctxDone(rerr) {
			return rerr
		}
		c.expireSession()
		return fmt.Errorf("%w: %v", ErrAuthExpired, rerr)
	}

	err = c.doJSON(ctx, method, endpoint, payload, res.AccessToken, out)
	if isUnauthorized(err) {
		c.expireSession()
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	return err
}

// expireSession clears the stored credentials and notifies the
// session-expired hook. The clear is best effort; the hook must still
// fire so the UI drops to the login screen.
func (c *Client) expireSession() {
	if err := c.creds.Clear(); err != nil {
		c.log.Error().Err(err).Msg("failed to clear credentials")
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// doJSON performs a single HTTP round trip with a JSON body. A non-2xx
// status comes back as *APIError; transport failures are wrapped and
// returned as-is.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any, access string, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return err
	}

	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// readBody reads the response body with a size cap.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(raw)) == maxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", maxResponseSize)
	}
	return raw, nil
}

// tokenExpired reports whether the access token's exp claim has
// lapsed. The token is parsed without any signature verification; only
// the expiry timestamp is read. Tokens without a readable expiry are
// left for the server to judge.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < expirySkew
}
