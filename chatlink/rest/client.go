// Package rest is the request/response collaborator of the connection layer:
// authentication, room management and message history. It is used before or
// independently of the live session and shares nothing with it but the token.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client provides access to the chat server's HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL is the API root, e.g.
// "http://localhost:8080/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register creates a new user account and returns a token.
func (c *Client) Register(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/register", creds, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with existing credentials and returns a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/login", creds, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRooms returns all rooms visible to the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var resp []RoomInfo
	if err := c.get(ctx, "/rooms", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateRoom creates a new room.
func (c *Client) CreateRoom(ctx context.Context, name string) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.post(ctx, "/rooms", CreateRoomRequest{Name: name}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRoom removes a room by id.
func (c *Client) DeleteRoom(ctx context.Context, id int64) error {
	return c.del(ctx, fmt.Sprintf("/rooms/%d", id))
}

// GetMessages retrieves message history for a room.
// limit caps the page size; before, if non-nil, returns messages older than
// that message id.
func (c *Client) GetMessages(ctx context.Context, roomID int64, limit int, before *int64) (*MessagesResponse, error) {
	url := fmt.Sprintf("/rooms/%d/messages?limit=%d", roomID, limit)
	if before != nil {
		url += fmt.Sprintf("&before=%d", *before)
	}

	var resp MessagesResponse
	if err := c.get(ctx, url, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, requireAuth)
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req, requireAuth)
	return c.do(req, dest)
}

func (c *Client) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req, true)
	return c.do(req, nil)
}

func (c *Client) authorize(req *http.Request, requireAuth bool) {
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
