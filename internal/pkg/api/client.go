package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrNoToken          = errors.New("no access token")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Config holds REST backend client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration // default: 15 seconds
	Token   string        // optional pre-issued access token
}

// Client talks to the HRIS REST backend. Requests carry the refresh cookie
// from the jar and, once a token is known, a bearer token via oauth2.
type Client struct {
	baseURL string
	plain   *http.Client
	authed  *http.Client
	tokens  *tokenStore
}

// NewClient creates a new REST backend client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	plain := &http.Client{Jar: jar, Timeout: cfg.Timeout}
	tokens := &tokenStore{}
	tokens.Set(cfg.Token)

	// The transport reads the store on every request.
	authed := &http.Client{
		Jar:     jar,
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   http.DefaultTransport,
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		plain:   plain,
		authed:  authed,
		tokens:  tokens,
	}, nil
}

// SetToken replaces the bearer token; an empty token clears it.
func (c *Client) SetToken(token string) {
	c.tokens.Set(token)
}

func (c *Client) Token() string {
	return c.tokens.Get()
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.plain
	if c.tokens.Get() != "" {
		client = c.authed
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// The backend answers business failures with {success:false} and a
	// 4xx status; those bodies are still decoded for the caller.
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s %s: %w: %d", method, path, ErrUnexpectedStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	return nil
}

type tokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *tokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *tokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Token implements oauth2.TokenSource
func (s *tokenStore) Token() (*oauth2.Token, error) {
	token := s.Get()
	if token == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
