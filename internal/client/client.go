// Package client is a small typed client for the JobSwipe HTTP API, used
// by the terminal tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status        int
	Code          string
	Message       string
	RetryAfterSec int64
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}
}

// WithToken returns a copy that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = strings.TrimSpace(token)
	return &cp
}

func (c *Client) Login(ctx context.Context, email, password string) (dto.AuthTokensResponse, error) {
	var out dto.AuthTokensResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Feed loads one page of the swipe feed: active jobs the caller has not
// decided on yet, best fit first.
func (c *Client) Feed(ctx context.Context, page, limit int) (dto.JobsResponse, error) {
	q := url.Values{}
	q.Set("mode", "swipe")
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out dto.JobsResponse
	err := c.do(ctx, http.MethodGet, "/jobs?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Swipe(ctx context.Context, jobID int64, direction string) (dto.SwipeResponse, error) {
	var out dto.SwipeResponse
	err := c.do(ctx, http.MethodPost, "/swipes", dto.SwipeRequest{JobID: jobID, Direction: direction}, &out)
	return out, err
}

func (c *Client) Subscription(ctx context.Context) (dto.SubscriptionResponse, error) {
	var out dto.SubscriptionResponse
	err := c.do(ctx, http.MethodGet, "/subscription", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload httperrors.RateLimitError
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{
		Status:        resp.StatusCode,
		Code:          payload.Code,
		Message:       payload.Message,
		RetryAfterSec: payload.RetryAfterSec,
	}
}
