package scrape

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/platform/logger"
)

// productLinkSelector matches product tiles on a section listing page.
// Stable on the target shop as of mid 2025.
const productLinkSelector = `a.product--title`

// ingredientsScript walks the product properties block for the
// "Zusammensetzung" label and returns the paragraph that follows it.
const ingredientsScript = `(() => {
	const labels = document.querySelectorAll('div.product--properties strong');
	for (const label of labels) {
		if (label.textContent.includes('Zusammensetzung')) {
			const next = label.nextElementSibling;
			if (next && next.tagName === 'P') {
				return next.innerText;
			}
		}
	}
	return '';
})()`

// Crawler drives a headless browser over the configured shop sections and
// exposes the scraped product pages as one ordered stream.
type Crawler struct {
	baseURL  string
	sections []string
	headless bool
	timeout  time.Duration
	log      *logger.Logger
}

// NewCrawler creates a crawler for the given shop base URL and section slugs.
func NewCrawler(baseURL string, sections []string, headless bool, timeout time.Duration, log *logger.Logger) *Crawler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sections: sections,
		headless: headless,
		timeout:  timeout,
		log:      log.With("component", "scrape"),
	}
}

type crawlResult struct {
	record *domain.ScrapedRecord
	err    error
}

// Stream starts the crawl and returns a lazy stream over its results.
// Section listings are fetched concurrently in separate tabs; product pages
// are visited one at a time in sorted URL order, so the stream order is
// deterministic for a given site state.
func (c *Crawler) Stream(ctx context.Context) domain.ScrapeStream {
	results := make(chan crawlResult)
	go c.run(ctx, results)
	return &crawlStream{results: results}
}

type crawlStream struct {
	results <-chan crawlResult
	err     error
}

// Next blocks until the crawl produces the next record. Returns io.EOF once
// the crawl has visited every product page.
func (s *crawlStream) Next(ctx context.Context) (*domain.ScrapedRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	select {
	case <-ctx.Done():
		s.err = fmt.Errorf("%w: %v", domain.ErrAdapterTransport, ctx.Err())
		return nil, s.err
	case result, ok := <-s.results:
		if !ok {
			return nil, io.EOF
		}
		if result.err != nil {
			s.err = result.err
			return nil, s.err
		}
		return result.record, nil
	}
}

// run owns the browser lifecycle. It closes the results channel when the
// crawl is complete; a browser-level failure is sent as a transport error
// before closing.
func (c *Crawler) run(ctx context.Context, results chan<- crawlResult) {
	defer close(results)

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !c.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Starting the browser up front makes launch failures distinguishable
	// from per-page failures.
	if err := chromedp.Run(browserCtx); err != nil {
		c.emit(ctx, results, crawlResult{err: fmt.Errorf("%w: launch browser: %v", domain.ErrAdapterTransport, err)})
		return
	}

	urls, err := c.collectProductURLs(browserCtx)
	if err != nil {
		c.emit(ctx, results, crawlResult{err: err})
		return
	}
	c.log.Info("listing crawl complete", "sections", len(c.sections), "products", len(urls))

	for _, url := range urls {
		record, err := c.scrapeProduct(browserCtx, url)
		if err != nil {
			// Occasional gaps are tolerated; the page is skipped and the
			// crawl continues.
			c.log.Warn("skipping product page", "url", url, "error", err)
			continue
		}
		if !c.emit(ctx, results, crawlResult{record: record}) {
			return
		}
	}
}

// emit delivers one result unless the consumer is gone.
func (c *Crawler) emit(ctx context.Context, results chan<- crawlResult, result crawlResult) bool {
	select {
	case results <- result:
		return true
	case <-ctx.Done():
		return false
	}
}

// collectProductURLs fetches every section listing concurrently and returns
// the deduplicated product URLs in sorted order.
func (c *Crawler) collectProductURLs(browserCtx context.Context) ([]string, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		seen     = make(map[string]struct{})
		failures int
	)

	for _, slug := range c.sections {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()

			tabCtx, cancelTab := chromedp.NewContext(browserCtx)
			defer cancelTab()
			tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
			defer cancelTimeout()

			sectionURL := fmt.Sprintf("%s/%s", c.baseURL, slug)
			var hrefs []string
			err := chromedp.Run(tabCtx,
				chromedp.Navigate(sectionURL),
				chromedp.Evaluate(fmt.Sprintf(
					`Array.from(document.querySelectorAll(%q)).map(a => a.href)`,
					productLinkSelector,
				), &hrefs),
			)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Warn("section listing failed", "section", slug, "error", err)
				failures++
				return
			}
			c.log.Debug("section listed", "section", slug, "links", len(hrefs))
			for _, href := range hrefs {
				if href != "" {
					seen[href] = struct{}{}
				}
			}
		}(slug)
	}
	wg.Wait()

	if failures == len(c.sections) {
		return nil, fmt.Errorf("%w: every section listing failed", domain.ErrAdapterTransport)
	}

	urls := make([]string, 0, len(seen))
	for url := range seen {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls, nil
}

// scrapeProduct visits one product page and extracts its title and
// ingredients paragraph.
func (c *Crawler) scrapeProduct(browserCtx context.Context, url string) (*domain.ScrapedRecord, error) {
	tabCtx, cancel := context.WithTimeout(browserCtx, c.timeout)
	defer cancel()

	var title, ingredients string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Title(&title),
		chromedp.Evaluate(ingredientsScript, &ingredients),
	)
	if err != nil {
		return nil, err
	}

	return &domain.ScrapedRecord{
		URL:             url,
		Title:           strings.TrimSpace(title),
		IngredientsText: strings.TrimSpace(ingredients),
	}, nil
}
