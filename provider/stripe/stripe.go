// Package stripe implements the Payments capability against Stripe's
// payment-intents REST API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flarexio/deliblade/provider"
)

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "STRIPE_SECRET_KEY"
	}

	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com/v1"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type paymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (*provider.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("metadata[order_id]", orderID)
	form.Set("automatic_payment_methods[enabled]", "true")

	var intent paymentIntent
	if err := c.do(ctx, http.MethodPost, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}

	return &provider.PaymentIntent{
		Handle:       intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (c *Client) Confirm(ctx context.Context, handle string) (bool, error) {
	var intent paymentIntent
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+handle, nil, &intent); err != nil {
		return false, err
	}

	return intent.Status == "succeeded", nil
}

func (c *Client) do(ctx context.Context, method string, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return provider.Wrap("payments", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return provider.Errorf("payments", "request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Wrap("payments", err)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return provider.Wrap("payments", err)
	}

	return nil
}
