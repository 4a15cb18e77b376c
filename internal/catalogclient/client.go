// Package catalogclient talks to the catalog service over HTTP.
package catalogclient

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
)

var (
	ErrNotFound    = errors.New("catalog product not found")
	ErrBadStatus   = errors.New("catalog bad status")
	ErrUnavailable = errors.New("catalog unavailable")
	ErrRateLimited = errors.New("catalog rate limited")
)

const maxResponseBytes = 4 << 20

type Client struct {
	BaseURL string
	Client  *http.Client

	token   string
	breaker *gobreaker.CircuitBreaker[*response]
	log     *zap.Logger
}

type response struct {
	status int
	body   []byte
}

type serverError struct{ status int }

func (e serverError) Error() string { return "status " + strconv.Itoa(e.status) }

func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}

	c := &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// WithToken returns a copy that authenticates with an admin token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, in any, hdr http.Header) (*response, error) {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = b
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Request-Id", uuid.NewString())
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		for k, vs := range hdr {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		res, err := c.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		b, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return nil, serverError{status: res.StatusCode}
		}
		return &response{status: res.StatusCode, body: b}, nil
	})
	if err != nil {
		var se serverError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: status=%d", ErrBadStatus, se.status)
		}
		c.log.Debug("catalog request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func expect(resp *response, codes ...int) error {
	for _, c := range codes {
		if resp.status == c {
			return nil
		}
	}
	switch resp.status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return fmt.Errorf("%w: status=%d body=%s", ErrBadStatus, resp.status, bytes.TrimSpace(resp.body))
}

func (c *Client) getJSON(ctx context.Context, path string, out any, hdr http.Header) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, hdr)
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return err
	}
	return json.Unmarshal(resp.body, out)
}

func localeHeader(locale string) http.Header {
	if locale == "" {
		return nil
	}
	return http.Header{"Accept-Language": []string{locale}}
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := c.getJSON(ctx, "/products", &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetEntry(ctx context.Context, id int) (catalog.Entry, error) {
	var out catalog.Entry
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &out, nil); err != nil {
		return catalog.Entry{}, err
	}
	return out, nil
}

type CreateProduct struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Rating     int    `json:"rating"`
	BestBefore string `json:"best_before,omitempty"`
}

// CreateProduct reports created=false when the product already existed.
func (c *Client) CreateProduct(ctx context.Context, id int, name string, price decimal.Decimal, rating catalog.Rating, bestBefore *time.Time) (catalog.Product, bool, error) {
	in := CreateProduct{ID: id, Name: name, Price: price.String(), Rating: rating.Ordinal()}
	if bestBefore != nil {
		in.BestBefore = bestBefore.Format("2006-01-02")
	}

	resp, err := c.do(ctx, http.MethodPost, "/products", in, nil)
	if err != nil {
		return catalog.Product{}, false, err
	}
	if err := expect(resp, http.StatusCreated, http.StatusOK); err != nil {
		return catalog.Product{}, false, err
	}
	var p catalog.Product
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return catalog.Product{}, false, err
	}
	return p, resp.status == http.StatusCreated, nil
}

func (c *Client) Review(ctx context.Context, id int, rating catalog.Rating, comments string) (catalog.Product, error) {
	in := map[string]any{"rating": rating.Ordinal(), "comments": comments}
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/products/%d/reviews", id), in, nil)
	if err != nil {
		return catalog.Product{}, err
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return catalog.Product{}, err
	}
	var p catalog.Product
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (c *Client) ProductReport(ctx context.Context, id int, locale string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/report", id), nil, localeHeader(locale))
	if err != nil {
		return "", err
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return "", err
	}
	return string(resp.body), nil
}

func (c *Client) Discounts(ctx context.Context, locale string) (map[string]string, error) {
	out := map[string]string{}
	if err := c.getJSON(ctx, "/discounts", &out, localeHeader(locale)); err != nil {
		return nil, err
	}
	return out, nil
}

// Token logs in as admin and returns a client carrying the token.
func (c *Client) Token(ctx context.Context, password string) (*Client, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/token", map[string]string{"password": password}, nil)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, err
	}
	return c.WithToken(out.AccessToken), nil
}

func (c *Client) Dump(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/admin/dump", nil, nil)
	if err != nil {
		return "", err
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return "", err
	}
	var out struct {
		Snapshot string `json:"snapshot"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", err
	}
	return out.Snapshot, nil
}

func (c *Client) Restore(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/admin/restore", nil, nil)
	if err != nil {
		return err
	}
	return expect(resp, http.StatusNoContent)
}
