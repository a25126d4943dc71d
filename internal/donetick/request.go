package donetick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/chorebridge/internal/model"
)

// outcome classifies one attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetry
	outcomeReauth
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRetry:
		return "retry"
	case outcomeReauth:
		return "reauth"
	}
	return "fatal"
}

const maxBackoff = 5 * time.Second

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests skip authentication; used for login.
	anonymous bool
}

type attemptResult struct {
	status int
	body   []byte
	token  string
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.backoffBase)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(maxBackoff, b)
	retries := c.cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// do runs r with retries and decodes a success body into out. A 401 on an
// authenticated request invalidates the session and repeats the request
// once with a fresh token.
func (c *Client) do(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	reauthed := false
	for {
		res, err := c.withRetry(ctx, r, payload)
		if errors.Is(err, errReauth) {
			if reauthed || r.anonymous {
				return &AuthenticationError{StatusCode: http.StatusUnauthorized, Message: apiErrorOf(res.body).Error}
			}
			reauthed = true
			c.session.invalidate(res.token)
			c.logger.Info("token rejected, re-authenticating", "method", r.method, "path", r.path)
			continue
		}
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if err := decodeBody(res.body, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
		}
		return nil
	}
}

var errReauth = errors.New("reauthenticate")

func (c *Client) withRetry(ctx context.Context, r request, payload []byte) (attemptResult, error) {
	var (
		res      attemptResult
		last     outcome
		lastErr  error
		attempts int
	)
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempts++
		var err error
		res, last, err = c.attempt(ctx, r, payload, attempts)
		switch last {
		case outcomeRetry:
			lastErr = err
			c.logger.Warn("request failed, will retry",
				"method", r.method, "path", r.path, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		case outcomeReauth:
			return errReauth
		}
		return err
	})
	if err == nil || last != outcomeRetry {
		return res, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s %s: %w", r.method, r.path, ctxErr)
	}
	return res, &TransientRequestError{Method: r.method, Path: r.path, Attempts: attempts, Err: lastErr}
}

// attempt authenticates, waits for the rate limiter and sends r once.
func (c *Client) attempt(ctx context.Context, r request, payload []byte, n int) (attemptResult, outcome, error) {
	var res attemptResult

	var header, value string
	if !r.anonymous {
		h, v, tok, err := c.credentials(ctx)
		if err != nil {
			return res, outcomeFatal, err
		}
		header, value, res.token = h, v, tok
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return res, outcomeFatal, err
	}

	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Attempt())
	defer cancel()

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, r.method, u, body)
	if err != nil {
		return res, outcomeFatal, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header != "" {
		req.Header.Set(header, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return res, outcomeFatal, ctx.Err()
		}
		return res, outcomeRetry, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	res.status = resp.StatusCode
	res.body, err = io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return res, outcomeFatal, ctx.Err()
		}
		return res, outcomeRetry, fmt.Errorf("read body: %w", err)
	}

	oc, err := classify(res.status, res.body, r.anonymous)
	c.logger.Debug("request",
		"method", r.method, "path", r.path, "status", res.status, "attempt", n,
		"request_id", requestID, "duration", time.Since(start), "outcome", oc.String())
	return res, oc, err
}

// credentials returns the auth header to send and the bearer token it
// carries, if any.
func (c *Client) credentials(ctx context.Context) (header, value, token string, err error) {
	if c.cfg.APIToken != "" {
		return "secretkey", c.cfg.APIToken, "", nil
	}
	if !c.Configured() {
		return "", "", "", ErrNotConfigured
	}
	tok, err := c.session.Token(ctx)
	if err != nil {
		return "", "", "", err
	}
	return "Authorization", "Bearer " + tok, tok, nil
}

func classify(status int, body []byte, anonymous bool) (outcome, error) {
	switch {
	case status >= 200 && status < 300:
		return outcomeSuccess, nil
	case status >= 500:
		return outcomeRetry, fmt.Errorf("server error: status %d", status)
	}

	apiErr := apiErrorOf(body)
	switch status {
	case http.StatusUnauthorized:
		if anonymous {
			return outcomeFatal, &AuthenticationError{StatusCode: status, Message: apiErr.Error}
		}
		return outcomeReauth, nil
	case http.StatusPaymentRequired:
		return outcomeFatal, &FeatureRestrictedError{StatusCode: status, Message: apiErr.Error}
	case http.StatusForbidden:
		if !anonymous && mentionsPlan(apiErr.Error) {
			return outcomeFatal, &FeatureRestrictedError{StatusCode: status, Message: apiErr.Error}
		}
		return outcomeFatal, &AuthenticationError{StatusCode: status, Message: apiErr.Error}
	}
	return outcomeFatal, &StatusError{StatusCode: status, Body: apiErr}
}

func apiErrorOf(body []byte) model.APIError {
	var e struct {
		model.APIError
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return model.APIError{Error: string(bytes.TrimSpace(body))}
	}
	if e.Error == "" {
		e.Error = e.Message
	}
	return e.APIError
}

// decodeBody unwraps the {"res": ...} envelope when present.
func decodeBody(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env struct {
		Res json.RawMessage `json:"res"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Res != nil {
		return json.Unmarshal(env.Res, out)
	}
	return json.Unmarshal(body, out)
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}

func (c *Client) login(ctx context.Context) (loginResult, error) {
	var res loginResult
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/v1/auth/login",
		body:      map[string]string{"username": c.cfg.Username, "password": c.cfg.Password},
		anonymous: true,
	}, &res)
	if err != nil {
		return res, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return res, &AuthenticationError{StatusCode: http.StatusOK, Message: "login response has no token"}
	}
	return res, nil
}

// Authenticate logs in now rather than on the first request.
func (c *Client) Authenticate(ctx context.Context) error {
	_, _, _, err := c.credentials(ctx)
	return err
}
