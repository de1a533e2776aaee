package models

// FeatureColumns is the ordered feature contract shared by comps and valuation.
// The regression model artefact must be trained on exactly this order.
var FeatureColumns = []string{
	"area_sqm",
	"floor",
	"bedrooms",
	"bathrooms",
	"has_elevator",
	"has_parking_space",
	"distance_from_center",
	"total_rooms",
	"neighborhood_cluster",
	"dist_to_nearest_center",
}

// FeatureVector is one listing projected onto FeatureColumns.
type FeatureVector []float64
