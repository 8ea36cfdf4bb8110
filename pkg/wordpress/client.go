// Package wordpress provides a client for the listings site's WordPress
// REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Client defines the WordPress listing operations.
type Client interface {
	// FetchExisting pulls every published and draft listing from the site
	// and indexes them for duplicate lookup.
	FetchExisting(ctx context.Context) (*Index, error)
	// CreateListing creates a new listing post and returns its ID.
	CreateListing(ctx context.Context, p *Payload) (int, error)
	// UpdateListing updates an existing listing post.
	UpdateListing(ctx context.Context, id int, p *Payload) error
	// TrashListing moves a listing post to the trash.
	TrashListing(ctx context.Context, id int) error
}

// Listing is a listing post as returned by the REST API.
type Listing struct {
	ID     int      `json:"id"`
	Slug   string   `json:"slug"`
	Status string   `json:"status"`
	Link   string   `json:"link"`
	Title  rendered `json:"title"`
	Meta   Meta     `json:"meta"`
}

type rendered struct {
	Rendered string `json:"rendered"`
}

// Meta carries the listing custom fields the importer reads and writes.
type Meta struct {
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	ZipCode        string `json:"zip_code,omitempty"`
	Website        string `json:"website,omitempty"`
	SeniorPlaceURL string `json:"senior_place_url,omitempty"`
	Type           string `json:"type,omitempty"`
}

// Payload is the request body for creating or updating a listing post.
type Payload struct {
	Title  string `json:"title,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Status string `json:"status,omitempty"`
	Meta   *Meta  `json:"meta,omitempty"`
}

// Option configures the WordPress client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (0.5 req/s; shared
// hosting throttles bursts hard).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithDryRun makes mutating calls log and return without touching the site.
func WithDryRun(dry bool) Option {
	return func(c *httpClient) {
		c.dryRun = dry
	}
}

type httpClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	limiter  *rate.Limiter
	dryRun   bool
	log      *zap.Logger
}

// NewClient creates a WordPress client authenticated with an application
// password.
func NewClient(baseURL, username, appPassword string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  baseURL,
		username: username,
		password: appPassword,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
		log:     zap.L().With(zap.String("component", "wordpress")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const perPage = 100

func (c *httpClient) FetchExisting(ctx context.Context) (*Index, error) {
	idx := NewIndex()

	// Publish and draft listings live in separate status queries; fetch
	// both concurrently.
	g, gCtx := errgroup.WithContext(ctx)
	results := make([][]Listing, 2)
	for i, status := range []string{"publish", "draft"} {
		g.Go(func() error {
			listings, err := c.fetchStatus(gCtx, status)
			if err != nil {
				return err
			}
			results[i] = listings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, listings := range results {
		for i := range listings {
			idx.Add(&listings[i])
		}
	}
	c.log.Info("fetched existing listings", zap.Int("count", idx.Len()))
	return idx, nil
}

func (c *httpClient) fetchStatus(ctx context.Context, status string) ([]Listing, error) {
	var all []Listing
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/wp-json/wp/v2/listings?status=%s&per_page=%d&page=%d",
			c.baseURL, status, perPage, page)

		var batch []Listing
		if err := c.do(ctx, http.MethodGet, url, nil, &batch); err != nil {
			// When the count is an exact multiple of perPage, the request
			// one past the last page comes back 400 invalid-page, not an
			// empty list.
			if isPastLastPage(err) {
				return all, nil
			}
			return nil, eris.Wrapf(err, "wordpress: fetch %s page %d", status, page)
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}

// apiError is a non-2xx REST response with up to 2 KiB of its body.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("wordpress: status %d: %s", e.Status, e.Body)
}

func isPastLastPage(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) &&
		apiErr.Status == http.StatusBadRequest &&
		strings.Contains(apiErr.Body, "rest_post_invalid_page_number")
}

func (c *httpClient) CreateListing(ctx context.Context, p *Payload) (int, error) {
	if c.dryRun {
		c.log.Info("dry run: would create listing", zap.String("title", p.Title))
		return 0, nil
	}
	var created Listing
	url := c.baseURL + "/wp-json/wp/v2/listings"
	if err := c.do(ctx, http.MethodPost, url, p, &created); err != nil {
		return 0, eris.Wrapf(err, "wordpress: create listing %q", p.Title)
	}
	return created.ID, nil
}

func (c *httpClient) UpdateListing(ctx context.Context, id int, p *Payload) error {
	if c.dryRun {
		c.log.Info("dry run: would update listing", zap.Int("id", id))
		return nil
	}
	url := c.baseURL + "/wp-json/wp/v2/listings/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPost, url, p, nil); err != nil {
		return eris.Wrapf(err, "wordpress: update listing %d", id)
	}
	return nil
}

func (c *httpClient) TrashListing(ctx context.Context, id int) error {
	if c.dryRun {
		c.log.Info("dry run: would trash listing", zap.Int("id", id))
		return nil
	}
	url := c.baseURL + "/wp-json/wp/v2/listings/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return eris.Wrapf(err, "wordpress: trash listing %d", id)
	}
	return nil
}

// do performs one authenticated, rate-limited request and decodes the JSON
// response into out when out is non-nil.
func (c *httpClient) do(ctx context.Context, method, url string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "wordpress: rate limit")
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "wordpress: marshal body")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return eris.Wrap(err, "wordpress: build request")
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "wordpress: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiError{Status: resp.StatusCode, Body: string(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "wordpress: decode response")
	}
	return nil
}
