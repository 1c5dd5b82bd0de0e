package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

const loginPath = "/auth/login"

type (
	// TokenSource yields the bearer token to attach to requests; session.TokenStore satisfies it.
	TokenSource interface {
		Get(ctx context.Context) (token string, ok bool, err error)
	}

	// Caller performs one backend call; Client satisfies it.
	Caller interface {
		Call(ctx context.Context, method, path string, body, out interface{}) error
	}

	// Client talks to the school-events backend: one request, one response, no retries.
	Client struct {
		baseURL string
		http    *http.Client
		tokens  TokenSource
		logger  core.Logger
	}

	Credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

var _ Caller = (*Client)(nil)

// New returns a Client for baseURL, e.g. core.APIConfig.URL().
func New(baseURL string, tokens TokenSource, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// Call sends body (normalized, see Normalize) to path with the current bearer token
// and decodes the response into out when both are non-nil.
// Non-2xx responses fail with *HTTPError.
func (c *Client) Call(ctx context.Context, method, path string, body, out interface{}) error {
	token, _, err := c.tokens.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "reading token")
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	var payload interface{}
	if body != nil {
		if payload, err = Normalize(body); err != nil {
			return err
		}
	}
	return c.do(ctx, method, path, header, payload, out)
}

// Login exchanges credentials for a token. It never sends an Authorization header.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp LoginResponse
	creds := Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, loginPath, http.Header{}, creds, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshalling request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	for key, vals := range header {
		req.Header[key] = vals
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)

	c.logger.Debug(method+" "+path, map[string]interface{}{"request_id": reqID})
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s response", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(data, out), "decoding %s %s response", method, path)
}
