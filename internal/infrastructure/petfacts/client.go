package petfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/platform/logger"
)

// Client handles communication with an Open Pet Food Facts style catalog API.
// It exposes the paginated search endpoint as a lazy stream of records.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	pageSize    int
	rateLimiter *rate.Limiter
	log         *logger.Logger
}

// NewClient creates a new catalog API client
func NewClient(baseURL string, pageSize int, timeout time.Duration, log *logger.Logger) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	// The public instance asks bulk clients to stay around 10 req/min
	limiter := rate.NewLimiter(rate.Limit(0.167), 5) // burst of 5 requests

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		pageSize:    pageSize,
		rateLimiter: limiter,
		log:         log.With("component", "petfacts"),
	}
}

// searchResponse mirrors the catalog search endpoint payload
type searchResponse struct {
	Products  []searchProduct `json:"products"`
	Page      int             `json:"page"`
	PageCount int             `json:"page_count"`
}

// Stream starts a lazy, finite iteration over every product the catalog
// returns for the brand query. Pagination is driven on demand from Next;
// the stream ends when the reported page count is reached.
func (c *Client) Stream(ctx context.Context, brandQuery string) domain.CatalogStream {
	c.log.Info("starting catalog stream", "brand", brandQuery, "pageSize", c.pageSize)
	return &recordStream{client: c, brandQuery: brandQuery, page: 1}
}

// recordStream pulls catalog pages one at a time and hands out their records
// in page order.
type recordStream struct {
	client     *Client
	brandQuery string
	page       int
	buf        []domain.CatalogRecord
	done       bool
	err        error
}

// Next returns the next record, fetching further pages on demand. Returns
// io.EOF at end of stream. An error wrapping domain.ErrMalformedRecord
// refers to a single record and leaves the stream usable; transport errors
// are sticky and end the stream.
func (s *recordStream) Next(ctx context.Context) (*domain.CatalogRecord, error) {
	if s.err != nil {
		return nil, s.err
	}

	for len(s.buf) == 0 {
		if s.done {
			return nil, io.EOF
		}
		resp, err := s.client.searchPage(ctx, s.brandQuery, s.page)
		if err != nil {
			s.err = err
			return nil, err
		}
		if s.page >= resp.PageCount {
			s.done = true
		}
		s.page++

		for _, p := range resp.Products {
			s.buf = append(s.buf, p.toRecord())
		}
	}

	record := s.buf[0]
	s.buf = s.buf[1:]

	if record.Barcode == "" && record.NameHint == "" {
		return nil, fmt.Errorf("%w: catalog product without code or name", domain.ErrMalformedRecord)
	}
	return &record, nil
}

// searchPage fetches one page of catalog search results
func (c *Client) searchPage(ctx context.Context, brandQuery string, page int) (*searchResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v2/search", c.baseURL)
	params := url.Values{}
	params.Add("brand", brandQuery)
	params.Add("page_size", fmt.Sprintf("%d", c.pageSize))
	params.Add("page", fmt.Sprintf("%d", page))

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())
	c.log.Debug("requesting catalog page", "url", reqURL)

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrAdapterTransport, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", domain.ErrAdapterTransport, err)
		}
		req.Header.Set("User-Agent", "pawfacts/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn("catalog request failed", "attempt", attempt, "error", err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrAdapterTransport, err)
			sleepBackoff(ctx, attempt)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.log.Warn("catalog API error", "attempt", attempt, "status", resp.StatusCode)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAdapterTransport, resp.StatusCode)
			sleepBackoff(ctx, attempt)
			continue
		}

		var searchResp searchResponse
		if err := json.Unmarshal(body, &searchResp); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAdapterTransport, err)
		}

		c.log.Debug("catalog page fetched", "page", page, "products", len(searchResp.Products), "pageCount", searchResp.PageCount)
		return &searchResp, nil
	}

	return nil, lastErr
}

// sleepBackoff waits between retry attempts, respecting context cancellation
func sleepBackoff(ctx context.Context, attempt int) {
	select {
	case <-time.After(time.Duration(attempt*500) * time.Millisecond):
	case <-ctx.Done():
	}
}
