package services

import (
	"math"
	"sort"

	"realestate-comps/models"
)

// featureValue reads one FeatureColumns entry; false means the value is missing.
func featureValue(l *models.Listing, col int) (float64, bool) {
	switch models.FeatureColumns[col] {
	case "area_sqm":
		return l.Sqm, true
	case "floor":
		return deref(l.Floor)
	case "bedrooms":
		return float64(l.Beds), true
	case "bathrooms":
		return l.Baths, true
	case "has_elevator":
		return boolFloat(l.HasElevator), true
	case "has_parking_space":
		return boolFloat(l.HasParkingSpace), true
	case "distance_from_center":
		return deref(l.DistanceFromCenter)
	case "total_rooms":
		return deref(l.TotalRooms)
	case "neighborhood_cluster":
		if l.ClusterID == models.NoCluster {
			return 0, false
		}
		return float64(l.ClusterID), true
	case "dist_to_nearest_center":
		return deref(l.DistToNearestCenter)
	}
	return 0, false
}

// FeatureMedians returns the per-column median over dataset, ignoring missing
// values. Columns with no known value get 0.
func FeatureMedians(dataset []models.Listing) []float64 {
	medians := make([]float64, len(models.FeatureColumns))
	col := make([]float64, 0, len(dataset))
	for c := range models.FeatureColumns {
		col = col[:0]
		for i := range dataset {
			if v, ok := featureValue(&dataset[i], c); ok {
				col = append(col, v)
			}
		}
		medians[c] = median(col)
	}
	return medians
}

// FeatureVectorOf projects l onto FeatureColumns, imputing gaps from medians.
func FeatureVectorOf(l *models.Listing, medians []float64) models.FeatureVector {
	v := make(models.FeatureVector, len(models.FeatureColumns))
	for c := range models.FeatureColumns {
		if x, ok := featureValue(l, c); ok {
			v[c] = x
		} else {
			v[c] = medians[c]
		}
	}
	return v
}

// FeatureMatrix projects every listing of dataset, imputing with medians of
// that same dataset. The result depends on the dataset it is built from.
func FeatureMatrix(dataset []models.Listing) [][]float64 {
	medians := FeatureMedians(dataset)
	m := make([][]float64, len(dataset))
	for i := range dataset {
		m[i] = FeatureVectorOf(&dataset[i], medians)
	}
	return m
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return quantileSorted(s, 0.5)
}

// quantileSorted interpolates linearly between the order statistics of a
// sorted slice at h = (n-1)p, the default in R and pandas.
func quantileSorted(s []float64, p float64) float64 {
	h := float64(len(s)-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= len(s) {
		return s[len(s)-1]
	}
	return s[lo] + (h-float64(lo))*(s[lo+1]-s[lo])
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
