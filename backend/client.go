package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SlackConnect/utils"
)

const (
	teamsPath     = "/teams"
	recipientPath = "/recipient"
	messagesPath  = "/messages"
	sendPath      = "/send"
	schedulePath  = "/schedule"
	deletePath    = "/delete"
	callbackPath  = "/slack/oauth/callback"
	validatePath  = "/slack/validate/"
	installPath   = "/slack/install"

	// upstream bodies larger than this are treated as malformed
	maxBodyBytes = 4 << 20
)

var log = utils.Log.New("pkg", "backend")

// Client is the boundary to the message-delivery backend. Each method makes
// exactly one HTTP call and never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// InstallURL is the navigation target that starts identity linking.
func (c *Client) InstallURL() string {
	return c.baseURL + installPath
}

func (c *Client) Teams(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, teamsPath, nil, nil)
}

func (c *Client) Recipients(ctx context.Context, teamID string) (*Response, error) {
	return c.do(ctx, http.MethodGet, recipientPath, url.Values{"teamId": {teamID}}, nil)
}

func (c *Client) Messages(ctx context.Context, q MessagesQuery) (*Response, error) {
	params := url.Values{
		"id":     {q.ID},
		"type":   {q.Type},
		"teamId": {q.TeamID},
	}
	return c.do(ctx, http.MethodGet, messagesPath, params, nil)
}

func (c *Client) Send(ctx context.Context, req SendRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, sendPath, nil, req)
}

func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, schedulePath, nil, req)
}

func (c *Client) DeleteScheduled(ctx context.Context, req DeleteRequest) (*Response, error) {
	return c.do(ctx, http.MethodDelete, deletePath, nil, req)
}

// ExchangeCode trades an OAuth authorization code for a team identity.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Response, error) {
	return c.do(ctx, http.MethodGet, callbackPath, url.Values{"code": {code}}, nil)
}

func (c *Client) Validate(ctx context.Context, teamID string) (*Response, error) {
	return c.do(ctx, http.MethodGet, validatePath+url.PathEscape(teamID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*Response, error) {
	fail := func(status int, detail string, err error) error {
		return &UpstreamError{Method: method, Path: path, Status: status, Detail: detail, Err: err}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fail(0, "", fmt.Errorf("failed to marshal payload: %w", err))
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail(resp.StatusCode, "", fmt.Errorf("failed to read response body: %w", err))
	}
	log.Debug("Backend call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, string(raw), nil)
	}
	// a 2xx without content, typically 204 from DELETE, is an empty object
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return nil, fail(resp.StatusCode, string(raw), fmt.Errorf("malformed JSON in response"))
	}
	return &Response{Status: resp.StatusCode, Body: raw}, nil
}
