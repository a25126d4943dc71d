package donetick

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticating
	stateAuthenticated
	stateExpired
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticating:
		return "authenticating"
	case stateAuthenticated:
		return "authenticated"
	case stateExpired:
		return "expired"
	}
	return "unknown"
}

// defaultTokenLifetime applies when neither the login response nor the
// token itself carries an expiry.
const defaultTokenLifetime = 24 * time.Hour

type loginResult struct {
	Token  string `json:"token"`
	Expire string `json:"expire"`
}

// session holds the bearer token. Concurrent callers that find it missing
// or expired share a single login.
type session struct {
	mu        sync.Mutex
	state     sessionState
	token     string
	issuedAt  time.Time
	expiresAt time.Time

	group  singleflight.Group
	login  func(context.Context) (loginResult, error)
	now    func() time.Time
	margin time.Duration
	logger *slog.Logger
}

func newSession(login func(context.Context) (loginResult, error), now func() time.Time, margin time.Duration, logger *slog.Logger) *session {
	return &session{
		login:  login,
		now:    now,
		margin: margin,
		logger: logger,
	}
}

func (s *session) State() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// current returns the token if it is valid for at least the safety margin.
func (s *session) current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateAuthenticated {
		return "", false
	}
	if !s.now().Before(s.expiresAt.Add(-s.effectiveMargin())) {
		s.state = stateExpired
		return "", false
	}
	return s.token, true
}

// effectiveMargin caps the refresh margin at half the token's lifetime so
// short-lived tokens are still reused. Callers hold mu.
func (s *session) effectiveMargin() time.Duration {
	return min(s.margin, s.expiresAt.Sub(s.issuedAt)/2)
}

// Token returns a valid bearer token, logging in first if needed.
func (s *session) Token(ctx context.Context) (string, error) {
	if tok, ok := s.current(); ok {
		return tok, nil
	}

	ch := s.group.DoChan("login", func() (any, error) {
		// Another caller may have finished a login while we waited.
		if tok, ok := s.current(); ok {
			return tok, nil
		}
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *session) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	prev := s.state
	s.state = stateAuthenticating
	s.mu.Unlock()

	res, err := s.login(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = stateUnauthenticated
		s.token = ""
		s.mu.Unlock()
		return "", err
	}

	issued := s.now()
	expires := tokenExpiry(res, issued)

	s.mu.Lock()
	s.token = res.Token
	s.issuedAt = issued
	s.expiresAt = expires
	s.state = stateAuthenticated
	s.mu.Unlock()

	s.logger.Debug("logged in", "previous_state", prev.String(), "expires", expires.Format(time.RFC3339))
	return res.Token, nil
}

// invalidate marks the session expired if token is still the current one.
// A rejection observed for an older token leaves a newer login in place.
func (s *session) invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateAuthenticated && s.token == token {
		s.state = stateExpired
	}
}

// tokenExpiry prefers the login response, then the token's exp claim, then
// a fixed lifetime from issuance.
func tokenExpiry(res loginResult, issued time.Time) time.Time {
	if res.Expire != "" {
		if t, err := time.Parse(time.RFC3339Nano, res.Expire); err == nil {
			return t
		}
	}
	if exp, err := jwtExpiry(res.Token); err == nil {
		return exp
	}
	return issued.Add(defaultTokenLifetime)
}

// jwtExpiry reads the exp claim without verifying the signature; the client
// holds no key.
func jwtExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
