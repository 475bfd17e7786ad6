package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

// maximum response body read from the request/response endpoints.
const maxResponseBytes = 8 << 20

// UserRecord is one entry of the user registry.
type UserRecord struct {
	Username string `json:"username"`
}

// APIClient calls the registration and bootstrap endpoints.
type APIClient struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewAPIClient returns a client for the endpoints below baseURL.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logx.Component("api"),
	}
}

// Register announces username to the user registry. Any failure, including a
// non-2xx response, is a registration error.
func (c *APIClient) Register(ctx context.Context, username string) error {
	body, err := json.Marshal(UserRecord{Username: username})
	if err != nil {
		return errs.Wrap(errs.ErrRegistration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users", bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.ErrRegistration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrRegistration, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errs.Wrap(errs.ErrRegistration, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	c.logger.Debug().Str("username", username).Msg("User registered.")
	return nil
}

// FetchUsers returns the names of all registered users.
func (c *APIClient) FetchUsers(ctx context.Context) ([]string, error) {
	var records []UserRecord
	if err := c.getJSON(ctx, "/api/users", &records); err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err, "users")
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Username)
	}
	return names, nil
}

// FetchMessages returns the full message history in server order.
func (c *APIClient) FetchMessages(ctx context.Context) ([]chat.Message, error) {
	var history []chat.Message
	if err := c.getJSON(ctx, "/api/messages", &history); err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err, "messages")
	}
	return history, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return fmt.Errorf("GET %s: unexpected status %d", path, res.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(dst); err != nil {
		return fmt.Errorf("GET %s: invalid response body: %w", path, err)
	}
	return nil
}
