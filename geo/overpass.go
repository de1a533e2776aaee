package geo

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"
)

// PlaceQuerier runs a raw Overpass QL query.
type PlaceQuerier interface {
	Query(query string) (overpass.Result, error)
}

// OverpassGazetteer collects neighbourhood names from OpenStreetMap so the
// address extractor can recognise zones the built-in list misses.
type OverpassGazetteer struct {
	client  PlaceQuerier
	timeout time.Duration
}

// NewOverpassGazetteer creates a gazetteer source against an Overpass endpoint.
func NewOverpassGazetteer(endpoint string, timeout time.Duration) *OverpassGazetteer {
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassGazetteer{client: &client, timeout: timeout}
}

// NewOverpassGazetteerWith wraps an existing querier; used by tests.
func NewOverpassGazetteerWith(q PlaceQuerier) *OverpassGazetteer {
	return &OverpassGazetteer{client: q, timeout: 30 * time.Second}
}

// PlaceNames returns the distinct suburb, neighbourhood and quarter names inside box,
// sorted longest first so more specific names are matched before their prefixes.
func (g *OverpassGazetteer) PlaceNames(ctx context.Context, box BBox) ([]string, error) {
	query := fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			node["place"~"suburb|neighbourhood|quarter"](%s);
			way["place"~"suburb|neighbourhood|quarter"](%s);
		);
		out body;
	`, int(g.timeout.Seconds()), box, box)

	type outcome struct {
		res overpass.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := g.client.Query(query)
		done <- outcome{res, err}
	}()

	var res overpass.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query cancelled: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", out.err)
		}
		res = out.res
	}

	seen := make(map[string]struct{})
	var names []string
	add := func(tags map[string]string) {
		name := strings.TrimSpace(tags["name"])
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	for _, node := range res.Nodes {
		add(node.Tags)
	}
	for _, way := range res.Ways {
		add(way.Tags)
	}

	sort.SliceStable(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names, nil
}
