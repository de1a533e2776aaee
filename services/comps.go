package services

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"realestate-comps/geo"
	"realestate-comps/models"
)

const genericSimilarity = "comparable overall features"

// FindComps returns the n listings nearest to targetID in min-max normalised
// feature space. The target itself is never returned; ties keep dataset order.
func FindComps(dataset []models.Listing, targetID string, n int) ([]models.Comp, error) {
	t := indexOf(dataset, targetID)
	if t < 0 {
		return nil, fmt.Errorf("comps for %q: %w", targetID, models.ErrNotFound)
	}
	if n <= 0 {
		n = models.DefaultCompsN
	}

	matrix := FeatureMatrix(dataset)
	normaliseColumns(matrix)

	dists := make([]float64, len(dataset))
	for i, row := range matrix {
		dists[i] = floats.Distance(row, matrix[t], 2)
	}
	dists[t] = math.Inf(1)

	order := make([]int, len(dists))
	floats.ArgsortStable(dists, order)

	n = min(n, len(dataset)-1)
	target := &dataset[t]
	comps := make([]models.Comp, 0, n)
	for _, i := range order[:n] {
		c := &dataset[i]
		comps = append(comps, models.Comp{
			ID:               c.ID,
			Price:            c.Price,
			Sqm:              c.Sqm,
			Rooms:            c.Rooms(),
			DistanceLabel:    DistanceLabel(target, c),
			SimilarityReason: SimilarityReason(target, c),
		})
	}
	return comps, nil
}

// DistanceLabel buckets the great-circle distance between two listings.
func DistanceLabel(a, b *models.Listing) string {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return "Nearby"
	}
	km := geo.HaversineKm(
		geo.Point{Lat: *a.Latitude, Lng: *a.Longitude},
		geo.Point{Lat: *b.Latitude, Lng: *b.Longitude},
	)
	switch {
	case km < 1:
		return "< 1 km"
	case km < 3:
		return "1-3 km"
	case km < 7:
		return "3-7 km"
	default:
		return "> 7 km"
	}
}

// SimilarityReason explains in words why comp resembles target.
func SimilarityReason(target, comp *models.Listing) string {
	var parts []string

	switch d := target.Beds - comp.Beds; {
	case d == 0:
		parts = append(parts, "same number of bedrooms")
	case d == 1 || d == -1:
		parts = append(parts, "similar bedroom count")
	}

	sqmDiff := math.Abs(target.Sqm-comp.Sqm) / math.Max(target.Sqm, 1)
	switch {
	case sqmDiff < 0.10:
		parts = append(parts, "very similar size")
	case sqmDiff < 0.20:
		parts = append(parts, "similar size")
	}

	if target.ClusterID != models.NoCluster && target.ClusterID == comp.ClusterID {
		parts = append(parts, "same neighborhood cluster")
	}

	if len(parts) == 0 {
		return capitalise(genericSimilarity)
	}
	return capitalise(strings.Join(parts, ", "))
}

// normaliseColumns min-max scales each column of m in place.
func normaliseColumns(m [][]float64) {
	if len(m) == 0 {
		return
	}
	col := make([]float64, len(m))
	for c := range m[0] {
		for i := range m {
			col[i] = m[i][c]
		}
		minMaxScale(col)
		for i := range m {
			m[i][c] = col[i]
		}
	}
}

func indexOf(dataset []models.Listing, id string) int {
	for i := range dataset {
		if dataset[i].ID == id {
			return i
		}
	}
	return -1
}

func capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
