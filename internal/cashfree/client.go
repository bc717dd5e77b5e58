package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured means the gateway credentials are missing.
var ErrNotConfigured = errors.New("cashfree credentials not configured")

// UpstreamError is a non-2xx answer from Cashfree.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cashfree returned status %d", e.Status)
}

// Detail returns the upstream body as JSON when it parses, else as text.
func (e *UpstreamError) Detail() any {
	var parsed any
	if err := json.Unmarshal([]byte(e.Body), &parsed); err == nil {
		return parsed
	}
	return e.Body
}

// Config holds gateway credentials.
type Config struct {
	AppID      string
	Secret     string
	Env        string
	APIVersion string
	// BaseURLs overrides the API base per environment.
	BaseURLs map[Environment]string
}

// Client talks to the Cashfree PG orders API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.AppID != "" && c.cfg.Secret != ""
}

// Missing reports which credentials are absent.
func (c *Client) Missing() (appID bool, secret bool) {
	return c.cfg.AppID == "", c.cfg.Secret == ""
}

// ConfiguredEnv returns the raw configured environment.
func (c *Client) ConfiguredEnv() string {
	return c.cfg.Env
}

// CustomerDetails identifies the payer.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderRequest is the create-order payload.
type OrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderNote       string          `json:"order_note"`
}

// Order is the upstream order document. Fields not modelled stay in Raw.
type Order struct {
	OrderID          string          `json:"order_id"`
	OrderStatus      string          `json:"order_status"`
	OrderAmount      *float64        `json:"order_amount,omitempty"`
	OrderCurrency    string          `json:"order_currency,omitempty"`
	PaymentSessionID string          `json:"payment_session_id,omitempty"`
	Raw              json.RawMessage `json:"-"`
}

// CreateOrder posts a new order.
func (c *Client) CreateOrder(ctx context.Context, env Environment, req OrderRequest) (Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Order{}, fmt.Errorf("encode order: %w", err)
	}
	return c.do(ctx, env, http.MethodPost, "/pg/orders", body)
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, env Environment, orderID string) (Order, error) {
	return c.do(ctx, env, http.MethodGet, "/pg/orders/"+url.PathEscape(orderID), nil)
}

func (c *Client) baseURL(env Environment) string {
	if base, ok := c.cfg.BaseURLs[env]; ok && base != "" {
		return strings.TrimRight(base, "/")
	}
	return defaultBaseURLs[env]
}

func (c *Client) do(ctx context.Context, env Environment, method, path string, body []byte) (Order, error) {
	if !c.Configured() {
		return Order{}, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL(env)+path, reader)
	if err != nil {
		return Order{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-client-id", c.cfg.AppID)
	req.Header.Set("x-client-secret", c.cfg.Secret)
	req.Header.Set("x-api-version", c.cfg.APIVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("cashfree request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("read cashfree response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("cashfree request failed",
			zap.String("env", string(env)),
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("body", shorten(string(raw), 500)),
		)
		return Order{}, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var order Order
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &order); err != nil {
			c.logger.Warn("cashfree response is not json", zap.Error(err))
		} else {
			order.Raw = raw
		}
	}
	if order.Raw == nil {
		order.Raw = json.RawMessage("{}")
	}
	return order, nil
}
