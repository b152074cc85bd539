package kiwify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL  = "https://public-api.kiwify.com"
	DefaultPageSize = 100
	maxTries        = 4
)

// Config holds the API credentials for the sales listing.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	AccountID    string
	PageSize     int
	Timeout      time.Duration
}

// Client lists sales from the Kiwify public API.
type Client struct {
	cfg  Config
	http *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type salesResponse struct {
	Pagination struct {
		Count      int `json:"count"`
		PageNumber int `json:"page_number"`
		PageSize   int `json:"page_size"`
	} `json:"pagination"`
	Data []Sale `json:"data"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kiwify api error (%d): %s", e.Status, e.Body)
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ListSales returns every sale in the window, following pages until a short one.
func (c *Client) ListSales(ctx context.Context, w Window) ([]Sale, error) {
	var all []Sale
	for page := 1; ; page++ {
		batch, err := c.salesPage(ctx, w, page)
		if err != nil {
			return nil, fmt.Errorf("sales %s..%s page %d: %w",
				w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), page, err)
		}
		all = append(all, batch...)
		if len(batch) < c.cfg.PageSize {
			return all, nil
		}
	}
}

func (c *Client) salesPage(ctx context.Context, w Window, page int) ([]Sale, error) {
	q := url.Values{}
	q.Set("start_date", w.Start.Format("2006-01-02"))
	q.Set("end_date", w.End.Format("2006-01-02"))
	q.Set("page_size", strconv.Itoa(c.cfg.PageSize))
	q.Set("page_number", strconv.Itoa(page))

	var resp salesResponse
	if err := c.get(ctx, "/v1/sales?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	op := func() (struct{}, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return struct{}{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("x-kiwify-account-id", c.cfg.AccountID)
		return struct{}{}, c.do(req, out)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
	)
	return err
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", backoff.Permanent(errors.New("kiwify: empty access token"))
	}
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	margin := time.Minute
	if margin > ttl/2 {
		margin = ttl / 2
	}
	c.token = tr.AccessToken
	c.expires = time.Now().Add(ttl - margin)
	return c.token, nil
}

// do executes req and decodes a 2xx JSON body. Only 429 and 5xx are retried.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
