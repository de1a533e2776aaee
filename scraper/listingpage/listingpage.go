package listingpage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"realestate-comps/config"
	"realestate-comps/models"
	"realestate-comps/utils"
)

// Page is the text a browser pulled out of one listing detail page.
type Page struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Area      string `json:"area"`
	Address   string `json:"address"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Body      string `json:"body"`
}

// Record turns the page into a raw record. Price and area stay inside the
// description so the text extractor recovers them like any other source.
func (p Page) Record() models.RawRecord {
	var parts []string
	for _, s := range []string{p.Title, p.Price, p.Area, p.Address, p.Body} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	rec := models.RawRecord{
		"url":         p.URL,
		"description": strings.Join(parts, "\n"),
	}
	if a := strings.TrimSpace(p.Address); a != "" {
		rec["address"] = a
	}
	if p.Latitude != "" && p.Longitude != "" {
		rec["latitude"] = p.Latitude
		rec["longitude"] = p.Longitude
	}
	return rec
}

// PageFetcher renders one listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Scraper fetches listing pages concurrently and collects raw records.
type Scraper struct {
	logger  *utils.Logger
	pool    *utils.WorkerPool
	seen    *utils.SeenSet
	retry   *utils.RetryConfig
	fetcher PageFetcher
	closeFn func()
}

// New creates a Scraper backed by a headless Chrome.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	f := newChromeFetcher(cfg.ChromeBin, logger)
	s := NewWithFetcher(cfg, logger, f)
	s.closeFn = f.close
	return s
}

// NewWithFetcher creates a Scraper around any PageFetcher.
func NewWithFetcher(cfg *config.Config, logger *utils.Logger, f PageFetcher) *Scraper {
	return &Scraper{
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewSeenSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		fetcher: f,
	}
}

// Scrape fetches every url once. Pages that keep failing are logged and
// skipped; records come back in url order.
func (s *Scraper) Scrape(ctx context.Context, urls []string) ([]models.RawRecord, error) {
	s.logger.Info("[scraper] Starting scrape — %d urls", len(urls))

	var mu sync.Mutex
	results := make([]models.RawRecord, len(urls))
	failed := 0

	for i, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !s.seen.Add(u) {
			s.logger.Debug("[scraper] Skipping duplicate: %s", u)
			continue
		}
		i := i
		ok := s.pool.Submit(ctx, func(ctx context.Context) {
			var page Page
			err := s.retry.Do(ctx, "listing-page", func(ctx context.Context) error {
				var err error
				page, err = s.fetcher.Fetch(ctx, u)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("[scraper] Listing page failed for %s: %v", u, err)
				failed++
				return
			}
			page.URL = u
			results[i] = page.Record()
		})
		if !ok {
			break
		}
	}
	s.pool.Wait()

	records := make([]models.RawRecord, 0, len(urls))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	s.logger.Info("[scraper] Scrape complete — %d raw records, %d failed", len(records), failed)
	if err := ctx.Err(); err != nil {
		return records, fmt.Errorf("scrape interrupted: %w", err)
	}
	return records, nil
}

// Close shuts down the browser, if one was started.
func (s *Scraper) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// ReadURLs reads one url per line, skipping blanks and # comments.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("url list %q: %w", path, models.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("url list %q: %w", path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("url list %q: %w", path, err)
	}
	return urls, nil
}

type chromeFetcher struct {
	allocCtx context.Context
	cancel   []context.CancelFunc
}

func newChromeFetcher(chromeBin string, logger *utils.Logger) *chromeFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[scraper] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	return &chromeFetcher{allocCtx: browserCtx, cancel: []context.CancelFunc{cancelBrowser, cancelAlloc}}
}

const extractPageJS = `
(function() {
	var text = function(sel) {
		var el = document.querySelector(sel);
		return el ? el.innerText.trim() : '';
	};
	var firstMatch = function(re) {
		var m = document.body.innerText.match(re);
		return m ? m[0] : '';
	};
	var result = {
		title: text('h1'),
		price: text('[class*="price"]') || firstMatch(/(€|EUR)\s*[\d.,\s]+|[\d.,\s]+\s*(€|EUR)/i),
		area: text('[class*="area"], [class*="surface"]') || firstMatch(/[\d.,]+\s*(m2|m²|sqm)/i),
		address: text('address, [class*="address"], [class*="location"]'),
		latitude: '',
		longitude: '',
		body: ''
	};
	var map = document.querySelector('[data-lat][data-lng], [data-latitude][data-longitude]');
	if (map) {
		result.latitude = map.getAttribute('data-lat') || map.getAttribute('data-latitude') || '';
		result.longitude = map.getAttribute('data-lng') || map.getAttribute('data-longitude') || '';
	}
	var desc = document.querySelector('[class*="description"], [itemprop="description"]');
	if (desc && desc.innerText.length > 30) {
		result.body = desc.innerText.trim().substring(0, 2000);
	} else {
		var paras = document.querySelectorAll('main p, article p');
		var texts = [];
		for (var i = 0; i < paras.length && texts.join(' ').length < 1500; i++) {
			var t = paras[i].innerText.trim();
			if (t.length > 20) texts.push(t);
		}
		result.body = texts.join(' ').substring(0, 2000);
	}
	return result;
})()
`

func (c *chromeFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	tab, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()
	tab, cancelTimeout := context.WithTimeout(tab, 60*time.Second)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var page Page
	err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.Sleep(4*time.Second),
		chromedp.Evaluate(extractPageJS, &page),
	)
	if err != nil {
		return Page{}, fmt.Errorf("chromedp listing extract: %w", err)
	}
	if page.Title == "" && page.Body == "" {
		return Page{}, fmt.Errorf("listing page %s rendered no content", url)
	}
	return page, nil
}

func (c *chromeFetcher) close() {
	for _, cancel := range c.cancel {
		cancel()
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
