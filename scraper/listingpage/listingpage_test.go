package listingpage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"realestate-comps/config"
	"realestate-comps/models"
	"realestate-comps/utils"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	pages map[string]Page
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	p, ok := f.pages[url]
	if !ok {
		return Page{}, errors.New("404")
	}
	return p, nil
}

func testConfig() *config.Config {
	return &config.Config{MaxConcurrency: 2, RateLimitMs: 0, MaxRetries: 1}
}

func TestScrapeDedupesAndSkipsFailures(t *testing.T) {
	f := &fakeFetcher{
		calls: map[string]int{},
		pages: map[string]Page{
			"https://example.al/1": {Title: "Apartament 2+1", Price: "95 000 €", Area: "85 m2", Body: "Flat in Blloku"},
			"https://example.al/2": {Title: "Garsoniere", Price: "€45,000", Latitude: "41.33", Longitude: "19.82"},
		},
	}
	s := NewWithFetcher(testConfig(), utils.NewLoggerTo(io.Discard, utils.LevelError), f)
	defer s.Close()

	records, err := s.Scrape(context.Background(), []string{
		"https://example.al/1",
		"https://example.al/missing",
		"https://example.al/2",
		"https://example.al/1",
		"  ",
	})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records; want 2", len(records))
	}
	if f.calls["https://example.al/1"] != 1 {
		t.Errorf("duplicate url fetched %d times; want 1", f.calls["https://example.al/1"])
	}
	if records[0]["url"] != "https://example.al/1" || records[1]["url"] != "https://example.al/2" {
		t.Errorf("records out of url order: %v, %v", records[0]["url"], records[1]["url"])
	}
	desc, _ := records[0]["description"].(string)
	for _, want := range []string{"95 000 €", "85 m2", "Blloku"} {
		if !strings.Contains(desc, want) {
			t.Errorf("description %q missing %q", desc, want)
		}
	}
	if records[1]["latitude"] != "41.33" {
		t.Errorf("latitude = %v; want 41.33", records[1]["latitude"])
	}
	if _, ok := records[0]["latitude"]; ok {
		t.Error("page without coordinates produced a latitude")
	}
}

func TestScrapeCancelled(t *testing.T) {
	f := &fakeFetcher{calls: map[string]int{}, pages: map[string]Page{}}
	s := NewWithFetcher(testConfig(), utils.NewLoggerTo(io.Discard, utils.LevelError), f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scrape(ctx, []string{"https://example.al/1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestPageRecord(t *testing.T) {
	rec := Page{URL: "u", Title: " T ", Address: "Rruga e Kavajes", Body: ""}.Record()
	if rec["description"] != "T\nRruga e Kavajes" {
		t.Errorf("description = %q", rec["description"])
	}
	if rec["address"] != "Rruga e Kavajes" {
		t.Errorf("address = %v", rec["address"])
	}
}

func TestReadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# listing pages\nhttps://example.al/1\n\n  https://example.al/2  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	urls, err := ReadURLs(path)
	if err != nil {
		t.Fatalf("ReadURLs: %v", err)
	}
	if len(urls) != 2 || urls[1] != "https://example.al/2" {
		t.Errorf("ReadURLs = %v", urls)
	}
	if _, err := ReadURLs(path + ".missing"); !errors.Is(err, models.ErrDataUnavailable) {
		t.Errorf("missing file err = %v; want ErrDataUnavailable", err)
	}
}
