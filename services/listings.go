package services

import (
	"fmt"
	"sort"
	"strings"

	"realestate-comps/models"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ListingFilter selects and orders listings for browsing. Nil bounds are ignored.
type ListingFilter struct {
	Q string

	MinPrice, MaxPrice *float64
	MinBeds, MaxBeds   *int
	MinBaths, MaxBaths *float64
	MinSqm, MaxSqm     *float64

	Furnished       *bool
	HasElevator     *bool
	HasParkingSpace *bool
	HasGarden       *bool

	Neighborhood string
	PropertyType string

	// Sort is "price_asc", "price_desc" or empty for dataset order.
	Sort string

	Page    int
	PerPage int
}

// ListingPage is one page of filtered listings.
type ListingPage struct {
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
	Pages    int              `json:"pages"`
	Listings []models.Listing `json:"listings"`
}

// FloatRange is a closed numeric interval.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterOptions lists the values a browsing client can filter on.
type FilterOptions struct {
	Neighborhoods    []string   `json:"neighborhoods"`
	PropertyTypes    []string   `json:"property_types"`
	FurnishedOptions []string   `json:"furnished_options"`
	PriceRange       FloatRange `json:"price_range"`
	SqmRange         FloatRange `json:"sqm_range"`
	BedsRange        FloatRange `json:"beds_range"`
	BathsRange       FloatRange `json:"baths_range"`
}

// FilterListings applies f to dataset and returns the requested page.
func FilterListings(dataset []models.Listing, f ListingFilter) ListingPage {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	q := strings.ToLower(strings.TrimSpace(f.Q))

	var matched []models.Listing
	for i := range dataset {
		if f.matches(&dataset[i], q) {
			matched = append(matched, dataset[i])
		}
	}

	switch f.Sort {
	case "price_asc":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price < matched[j].Price })
	case "price_desc":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price > matched[j].Price })
	}

	page := ListingPage{Total: len(matched), Page: f.Page, PerPage: f.PerPage, Listings: []models.Listing{}}
	if page.Total > 0 {
		page.Pages = (page.Total + f.PerPage - 1) / f.PerPage
	}
	start := (f.Page - 1) * f.PerPage
	if start < len(matched) {
		end := min(start+f.PerPage, len(matched))
		page.Listings = matched[start:end]
	}
	return page
}

func (f *ListingFilter) matches(l *models.Listing, q string) bool {
	if q != "" {
		hay := strings.ToLower(strings.Join([]string{l.Description, l.PropertyType, l.City, l.Neighborhood}, " "))
		if !strings.Contains(hay, q) {
			return false
		}
	}
	if !within(l.Price, f.MinPrice, f.MaxPrice) ||
		!within(l.Baths, f.MinBaths, f.MaxBaths) ||
		!within(l.Sqm, f.MinSqm, f.MaxSqm) {
		return false
	}
	if (f.MinBeds != nil && l.Beds < *f.MinBeds) || (f.MaxBeds != nil && l.Beds > *f.MaxBeds) {
		return false
	}
	if !flagMatches(l.Furnished, f.Furnished) ||
		!flagMatches(l.HasElevator, f.HasElevator) ||
		!flagMatches(l.HasParkingSpace, f.HasParkingSpace) ||
		!flagMatches(l.HasGarden, f.HasGarden) {
		return false
	}
	if f.Neighborhood != "" && !strings.EqualFold(l.Neighborhood, f.Neighborhood) {
		return false
	}
	if f.PropertyType != "" && !strings.EqualFold(l.PropertyType, f.PropertyType) {
		return false
	}
	return true
}

// ListingByID returns the listing with the given id.
func ListingByID(dataset []models.Listing, id string) (models.Listing, error) {
	i := indexOf(dataset, id)
	if i < 0 {
		return models.Listing{}, fmt.Errorf("listing %q: %w", id, models.ErrNotFound)
	}
	return dataset[i], nil
}

// BuildFilterOptions collects distinct categories and numeric ranges.
func BuildFilterOptions(dataset []models.Listing) FilterOptions {
	opts := FilterOptions{
		Neighborhoods:    []string{},
		PropertyTypes:    []string{},
		FurnishedOptions: []string{},
	}
	if len(dataset) == 0 {
		return opts
	}
	nb, pt, fs := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	first := dataset[0]
	opts.PriceRange = FloatRange{first.Price, first.Price}
	opts.SqmRange = FloatRange{first.Sqm, first.Sqm}
	opts.BedsRange = FloatRange{float64(first.Beds), float64(first.Beds)}
	opts.BathsRange = FloatRange{first.Baths, first.Baths}

	for _, l := range dataset {
		addDistinct(nb, &opts.Neighborhoods, l.Neighborhood)
		addDistinct(pt, &opts.PropertyTypes, l.PropertyType)
		addDistinct(fs, &opts.FurnishedOptions, l.FurnishingStatus)
		opts.PriceRange.extend(l.Price)
		opts.SqmRange.extend(l.Sqm)
		opts.BedsRange.extend(float64(l.Beds))
		opts.BathsRange.extend(l.Baths)
	}
	sort.Strings(opts.Neighborhoods)
	sort.Strings(opts.PropertyTypes)
	sort.Strings(opts.FurnishedOptions)
	return opts
}

func (r *FloatRange) extend(v float64) {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

func addDistinct(seen map[string]struct{}, dst *[]string, v string) {
	if v == "" {
		return
	}
	if _, ok := seen[v]; ok {
		return
	}
	seen[v] = struct{}{}
	*dst = append(*dst, v)
}

func within(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func flagMatches(v bool, want *bool) bool {
	return want == nil || v == *want
}
