package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/serjvanilla/go-overpass"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Point
		want    float64
		epsilon float64
	}{
		{"same point", Point{41.33, 19.82}, Point{41.33, 19.82}, 0, 1e-9},
		{"one degree of latitude", Point{41, 19}, Point{42, 19}, 111.19, 0.05},
		{"tirana blocks", Point{41.3275, 19.8187}, Point{41.3200, 19.8187}, 0.834, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HaversineKm(tt.a, tt.b); math.Abs(got-tt.want) > tt.epsilon {
				t.Errorf("HaversineKm(%v, %v) = %.4f; want %.4f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseBBox(t *testing.T) {
	b, err := ParseBBox("41.25, 19.65, 41.45, 20.00")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	if !b.Contains(Point{41.33, 19.82}) {
		t.Error("box should contain central Tirana")
	}
	if b.Contains(Point{41.50, 19.82}) {
		t.Error("box should not contain a point north of it")
	}
	if !b.Contains(Point{41.25, 19.65}) {
		t.Error("box edges are inclusive")
	}

	for _, bad := range []string{"1,2,3", "a,2,3,4", "95,0,96,1", "2,2,1,1"} {
		if _, err := ParseBBox(bad); err == nil {
			t.Errorf("ParseBBox(%q) = nil error; want error", bad)
		}
	}
}

type fakeQuerier struct {
	res overpass.Result
	err error
}

func (f fakeQuerier) Query(string) (overpass.Result, error) { return f.res, f.err }

func TestOverpassPlaceNames(t *testing.T) {
	res := overpass.Result{
		Nodes: map[int64]*overpass.Node{
			1: {Meta: overpass.Meta{ID: 1, Tags: map[string]string{"name": "Blloku", "place": "neighbourhood"}}},
			2: {Meta: overpass.Meta{ID: 2, Tags: map[string]string{"name": "Komuna e Parisit", "place": "suburb"}}},
			3: {Meta: overpass.Meta{ID: 3, Tags: map[string]string{"place": "quarter"}}},
		},
		Ways: map[int64]*overpass.Way{
			4: {Meta: overpass.Meta{ID: 4, Tags: map[string]string{"name": "blloku", "place": "neighbourhood"}}},
		},
	}
	g := NewOverpassGazetteerWith(fakeQuerier{res: res})

	names, err := g.PlaceNames(context.Background(), BBox{41.25, 19.65, 41.45, 20.0})
	if err != nil {
		t.Fatalf("PlaceNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("PlaceNames = %v; want 2 distinct names", names)
	}
	if names[0] != "Komuna e Parisit" {
		t.Errorf("names[0] = %q; want the longest name first", names[0])
	}
}

func TestOverpassPlaceNamesError(t *testing.T) {
	g := NewOverpassGazetteerWith(fakeQuerier{err: errors.New("rate limited")})
	if _, err := g.PlaceNames(context.Background(), BBox{}); err == nil {
		t.Error("PlaceNames = nil error; want the querier error")
	}
}
