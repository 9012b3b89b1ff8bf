package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/session"
)

const maxRelayResponseBytes = 8 << 20

// relayClient talks to the stateless relay service. The relay holds
// nothing between requests, so the client carries the session token
// itself: Login captures the x-cookie-* response headers and every
// subsequent call replays them.
type relayClient struct {
	relayURL string
	baseURL  string
	creds    compass.Credentials
	http     *http.Client
	token    session.Session
	closed   bool
}

func newRelayClient(relayURL, baseURL string, creds compass.Credentials) (*relayClient, error) {
	if err := requireRelayURL(relayURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, compass.ErrMissingBaseURL
	}
	return &relayClient{
		relayURL: strings.TrimRight(relayURL, "/"),
		baseURL:  strings.TrimRight(baseURL, "/"),
		creds:    creds,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *relayClient) Login(ctx context.Context) error {
	if c.closed {
		return compass.ErrDriverClosed
	}

	body, err := json.Marshal(map[string]string{
		"baseUrl":  c.baseURL,
		"username": c.creds.Username,
		"password": c.creds.Password,
	})
	if err != nil {
		return fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponseBytes))
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return relayError(resp.StatusCode, data)
	}

	token, err := session.Decode(resp.Header)
	if err != nil {
		return fmt.Errorf("relay login response: %w", err)
	}

	var result struct {
		BaseURL         string `json:"baseUrl"`
		UserID          int    `json:"userId"`
		SchoolConfigKey string `json:"schoolConfigKey"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	// The relay reports the base URL the upstream settled on; all
	// later requests must use it.
	if result.BaseURL != "" {
		c.baseURL = result.BaseURL
	}
	token.UserID = result.UserID
	token.ConfigKey = result.SchoolConfigKey
	c.token = token
	return nil
}

func (c *relayClient) GetUserDetails(ctx context.Context) (compass.RawUser, error) {
	var user compass.RawUser
	if err := c.get(ctx, "/user-details", nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *relayClient) GetCalendarEvents(ctx context.Context, start, end time.Time) ([]compass.RawEvent, error) {
	if end.IsZero() {
		end = start
	}
	query := map[string]string{
		"startDate": start.Format("2006-01-02"),
		"endDate":   end.Format("2006-01-02"),
	}
	var events []compass.RawEvent
	if err := c.get(ctx, "/calendar-events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Close discards the held session token. The relay keeps no state, so
// there is nothing remote to release.
func (c *relayClient) Close() error {
	c.closed = true
	c.token = session.Session{}
	c.http.CloseIdleConnections()
	return nil
}

func (c *relayClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	if c.closed {
		return compass.ErrDriverClosed
	}
	if c.token.Empty() {
		return compass.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.relayURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set(session.BaseURLHeader, c.baseURL)
	session.Apply(req.Header, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponseBytes))
	if err != nil {
		return fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return relayError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	return nil
}

// relayError rebuilds a typed error from the relay's JSON error body
// so callers see the same taxonomy on both sides of the wire.
func relayError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	if payload.Error == "" {
		payload.Error = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		return &compass.AuthError{Status: status, Message: payload.Error}
	case http.StatusGatewayTimeout:
		return &compass.TimeoutError{Op: "relay request", Err: fmt.Errorf("%s", payload.Error)}
	case http.StatusConflict:
		return compass.ErrIncompleteSession
	default:
		return fmt.Errorf("relay returned status %d: %s", status, payload.Error)
	}
}
