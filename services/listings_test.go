package services

import (
	"errors"
	"testing"

	"realestate-comps/models"
)

func TestFilterListingsPagination(t *testing.T) {
	data := tiranaListings()
	tests := []struct {
		page, perPage int
		wantLen       int
		wantPages     int
		wantFirstID   string
	}{
		{1, 3, 3, 4, "0"},
		{2, 3, 3, 4, "3"},
		{4, 3, 1, 4, "9"},
		{5, 3, 0, 4, ""},
		{0, 0, 10, 1, "0"},
		{1, 500, 10, 1, "0"},
	}
	for _, tt := range tests {
		page := FilterListings(data, ListingFilter{Page: tt.page, PerPage: tt.perPage})
		if page.Total != 10 {
			t.Errorf("page %d/%d: Total %d; want 10", tt.page, tt.perPage, page.Total)
		}
		if len(page.Listings) != tt.wantLen || page.Pages != tt.wantPages {
			t.Errorf("page %d/%d: got %d rows over %d pages; want %d over %d",
				tt.page, tt.perPage, len(page.Listings), page.Pages, tt.wantLen, tt.wantPages)
		}
		if tt.wantFirstID != "" && len(page.Listings) > 0 && page.Listings[0].ID != tt.wantFirstID {
			t.Errorf("page %d/%d: first id %s; want %s", tt.page, tt.perPage, page.Listings[0].ID, tt.wantFirstID)
		}
		if page.Listings == nil {
			t.Errorf("page %d/%d: Listings is nil; want empty slice", tt.page, tt.perPage)
		}
	}
}

func TestFilterListingsPerPageClamp(t *testing.T) {
	page := FilterListings(tiranaListings(), ListingFilter{PerPage: 1000})
	if page.PerPage != MaxPerPage {
		t.Errorf("PerPage = %d; want %d", page.PerPage, MaxPerPage)
	}
}

func TestFilterListingsPredicates(t *testing.T) {
	ip := func(v int) *int { return &v }
	bp := func(v bool) *bool { return &v }
	tests := []struct {
		name string
		f    ListingFilter
		want []string
	}{
		{"price window", ListingFilter{MinPrice: fp(70000), MaxPrice: fp(95000)}, []string{"0", "5", "8"}},
		{"beds at least 4", ListingFilter{MinBeds: ip(4)}, []string{"4", "9"}},
		{"garden", ListingFilter{HasGarden: bp(true)}, []string{"4"}},
		{"villa", ListingFilter{PropertyType: "VILLA"}, []string{"4"}},
		{"zone", ListingFilter{Neighborhood: "cluster 2"}, []string{"3", "6"}},
		{"text", ListingFilter{Q: "3-bed"}, []string{"2", "7"}},
		{"unfurnished with elevator", ListingFilter{Furnished: bp(false), HasElevator: bp(true)}, nil},
		{"area", ListingFilter{MinSqm: fp(100), MaxSqm: fp(125)}, []string{"2", "9"}},
	}
	for _, tt := range tests {
		page := FilterListings(tiranaListings(), tt.f)
		if len(page.Listings) != len(tt.want) {
			t.Errorf("%s: got %d listings; want %v", tt.name, len(page.Listings), tt.want)
			continue
		}
		for i, id := range tt.want {
			if page.Listings[i].ID != id {
				t.Errorf("%s: listing %d = %s; want %s", tt.name, i, page.Listings[i].ID, id)
			}
		}
	}
}

func TestFilterListingsSort(t *testing.T) {
	asc := FilterListings(tiranaListings(), ListingFilter{Sort: "price_asc"})
	if asc.Listings[0].ID != "3" || asc.Listings[9].ID != "4" {
		t.Errorf("price_asc: first %s last %s; want 3, 4", asc.Listings[0].ID, asc.Listings[9].ID)
	}
	desc := FilterListings(tiranaListings(), ListingFilter{Sort: "price_desc"})
	if desc.Listings[0].ID != "4" {
		t.Errorf("price_desc: first %s; want 4", desc.Listings[0].ID)
	}
}

func TestListingByID(t *testing.T) {
	l, err := ListingByID(tiranaListings(), "7")
	if err != nil || l.Price != 120000 {
		t.Errorf("ListingByID(7) = %+v, %v", l, err)
	}
	if _, err := ListingByID(tiranaListings(), "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("ListingByID(x) err = %v; want ErrNotFound", err)
	}
}

func TestBuildFilterOptions(t *testing.T) {
	opts := BuildFilterOptions(tiranaListings())
	if len(opts.Neighborhoods) != 3 || opts.Neighborhoods[0] != "Cluster 0" {
		t.Errorf("Neighborhoods = %v", opts.Neighborhoods)
	}
	if len(opts.PropertyTypes) != 2 || opts.PropertyTypes[0] != "apartment" {
		t.Errorf("PropertyTypes = %v", opts.PropertyTypes)
	}
	if len(opts.FurnishedOptions) != 3 {
		t.Errorf("FurnishedOptions = %v; want 3 statuses", opts.FurnishedOptions)
	}
	if opts.PriceRange != (FloatRange{45000, 200000}) || opts.SqmRange != (FloatRange{40, 140}) {
		t.Errorf("ranges = %+v %+v", opts.PriceRange, opts.SqmRange)
	}
	if opts.BedsRange != (FloatRange{1, 4}) || opts.BathsRange != (FloatRange{1, 2}) {
		t.Errorf("beds/baths ranges = %+v %+v", opts.BedsRange, opts.BathsRange)
	}

	empty := BuildFilterOptions(nil)
	if empty.Neighborhoods == nil || len(empty.Neighborhoods) != 0 {
		t.Errorf("empty dataset options = %+v", empty)
	}
}
