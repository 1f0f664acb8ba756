// Package carrier is an HTTP client for the carrier aggregator API used to book shipments.
package carrier

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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oapi-codegen/runtime"
	"golang.org/x/time/rate"
)

const (
	defaultRatePerMinute = 100
	defaultMaxRetries    = 3
	defaultTimeout       = 10 * time.Second
)

// Client calls the carrier API with a shared token bucket and bounded retries.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	backoff    func() backoff.BackOff
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRatePerMinute sets the request budget shared by every call of the client.
func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// WithMaxRetries bounds the retries on rate limiting and server errors.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = d
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// NewClient builds a client for the API rooted at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("carrier base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse carrier base URL: %w", err)
	}
	c := &Client{
		baseURL:    parsed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/defaultRatePerMinute), defaultRatePerMinute),
		maxRetries: defaultMaxRetries,
	}
	WithInitialBackoff(500 * time.Millisecond)(c)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SearchServices lists the carrier offers for a route and parcel set.
func (c *Client) SearchServices(ctx context.Context, q ServiceQuery) ([]Service, error) {
	params := []queryParam{
		{"from[country]", q.FromCountry},
		{"from[zip]", q.FromZip},
		{"to[country]", q.ToCountry},
		{"to[zip]", q.ToZip},
	}
	for i, p := range q.Packages {
		if !p.WeightKg.IsPositive() {
			return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("package %d: weight must be positive", i)}
		}
		prefix := "packages[" + strconv.Itoa(i) + "]"
		params = append(params,
			queryParam{prefix + "[weight]", p.WeightKg.String()},
			queryParam{prefix + "[length]", p.LengthCm},
			queryParam{prefix + "[width]", p.WidthCm},
			queryParam{prefix + "[height]", p.HeightCm},
		)
	}
	query := url.Values{}
	for _, param := range params {
		if err := addQueryParam(query, param.name, param.value); err != nil {
			return nil, err
		}
	}
	var out []Service
	if err := c.do(ctx, http.MethodGet, "/services", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder books a shipment and returns the carrier reference.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if strings.TrimSpace(req.ServiceID) == "" {
		return nil, &Error{Kind: KindValidation, Message: "service id is required"}
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/shipments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLabels returns the label URLs of a booked shipment.
func (c *Client) GetLabels(ctx context.Context, reference string) ([]string, error) {
	path, err := pathWithParam("/shipments/%s/labels", "reference", reference)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTracking returns the carrier tracking history of a shipment.
func (c *Client) GetTracking(ctx context.Context, reference string) ([]TrackingEvent, error) {
	path, err := pathWithParam("/shipments/%s/track", "reference", reference)
	if err != nil {
		return nil, err
	}
	var out struct {
		History []TrackingEvent `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// GetDropoffs lists relay points of a service near a postal code.
func (c *Client) GetDropoffs(ctx context.Context, serviceID, country, zip string) ([]Dropoff, error) {
	segments := make([]string, 0, 3)
	for _, p := range []struct{ name, value string }{{"serviceId", serviceID}, {"country", country}, {"zip", zip}} {
		styled, err := runtime.StyleParamWithLocation("simple", false, p.name, runtime.ParamLocationPath, p.value)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
		}
		segments = append(segments, styled)
	}
	var out []Dropoff
	if err := c.do(ctx, http.MethodGet, "/dropoffs/"+strings.Join(segments, "/"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterWebhook subscribes callbackURL to tracking notifications.
func (c *Client) RegisterWebhook(ctx context.Context, callbackURL string) error {
	if _, err := url.ParseRequestURI(callbackURL); err != nil {
		return &Error{Kind: KindValidation, Message: "invalid callback url", Err: err}
	}
	body := map[string]string{"url": callbackURL}
	return c.do(ctx, http.MethodPost, "/shipments/callback", nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "encode request body", Err: err}
		}
		payload = encoded
	}
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), c.maxRetries), ctx)
	return backoff.Retry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(transportError(err))
		}
		err := c.send(ctx, method, target.String(), payload, out)
		var carrierErr *Error
		if errors.As(err, &carrierErr) && (carrierErr.Kind == KindRateLimited || carrierErr.Kind == KindServer) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return statusError(resp.StatusCode, strings.TrimSpace(apiErr.Message))
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "decode response body", Err: err}
	}
	return nil
}

func pathWithParam(format, name, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", &Error{Kind: KindValidation, Message: name + " is required"}
	}
	styled, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return fmt.Sprintf(format, styled), nil
}

type queryParam struct {
	name  string
	value any
}

func addQueryParam(query url.Values, name string, value any) error {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	styled, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	parsed, err := url.ParseQuery(styled)
	if err != nil {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	for k, vs := range parsed {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	return nil
}
