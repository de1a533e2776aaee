package models

// RawRecord holds one unprocessed listing exactly as the ingest source produced it.
// Keys vary by source; the normalizer maps them onto the canonical schema.
type RawRecord map[string]any

// Furnishing status values found in the source data.
const (
	FurnishingFull    = "fully_furnished"
	FurnishingPartial = "partially_furnished"
	FurnishingNone    = "unfurnished"
	FurnishingUnknown = "unknown"
)

const (
	NoCluster   = -1
	UnknownZone = "Unknown"
	NoAddress   = "No address"
)

// DefaultCompsN is the comps count used when a caller asks for n <= 0.
const DefaultCompsN = 5

// Listing is the cleaned, canonical record shared read-only by every query.
// Optional numeric attributes are pointers; nil means "not known".
type Listing struct {
	ID    string   `json:"id" db:"id"`
	Price float64  `json:"price" db:"price"`
	Sqm   float64  `json:"sqm" db:"sqm"`
	Beds  int      `json:"beds" db:"beds"`
	Baths float64  `json:"baths" db:"baths"`
	Floor *float64 `json:"floor,omitempty" db:"floor"`

	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	FurnishingStatus string `json:"furnishing_status" db:"furnishing_status"`
	Furnished        bool   `json:"furnished" db:"furnished"`

	Description string `json:"description,omitempty" db:"description"`
	Address     string `json:"address,omitempty" db:"address"`

	Neighborhood        string   `json:"neighborhood" db:"neighborhood"`
	ClusterID           int      `json:"neighborhood_cluster" db:"neighborhood_cluster"`
	DistToNearestCenter *float64 `json:"dist_to_nearest_center,omitempty" db:"dist_to_nearest_center"`
	DistanceFromCenter  *float64 `json:"distance_from_center,omitempty" db:"distance_from_center"`
	PricePerSqm         float64  `json:"price_per_sqm" db:"price_per_sqm"`

	TotalRooms  *float64 `json:"total_rooms,omitempty" db:"total_rooms"`
	Balconies   *float64 `json:"balconies,omitempty" db:"balconies"`
	LivingRooms *float64 `json:"living_rooms,omitempty" db:"living_rooms"`

	HasElevator     bool `json:"has_elevator" db:"has_elevator"`
	HasParkingSpace bool `json:"has_parking_space" db:"has_parking_space"`
	HasGarage       bool `json:"has_garage" db:"has_garage"`
	HasCarport      bool `json:"has_carport" db:"has_carport"`
	HasTerrace      bool `json:"has_terrace" db:"has_terrace"`
	HasGarden       bool `json:"has_garden" db:"has_garden"`

	PropertyType   string `json:"property_type,omitempty" db:"property_type"`
	PropertyStatus string `json:"property_status,omitempty" db:"property_status"`
	City           string `json:"city,omitempty" db:"city"`

	IsOutlier bool `json:"is_outlier,omitempty" db:"is_outlier"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Rooms is the room count reported in comps: bedrooms plus bathrooms.
func (l *Listing) Rooms() int {
	return l.Beds + int(l.Baths)
}

// ClusterAssignment maps raw cluster ids to zone names. Order lists the cluster ids
// from innermost to outermost.
type ClusterAssignment struct {
	Names map[int]string
	Order []int
}

// Name returns the zone for a cluster id, or UnknownZone.
func (a ClusterAssignment) Name(clusterID int) string {
	if name, ok := a.Names[clusterID]; ok {
		return name
	}
	return UnknownZone
}

// Comp is one comparable listing returned by the comps query.
type Comp struct {
	ID               string  `json:"id"`
	Price            float64 `json:"price"`
	Sqm              float64 `json:"sqm"`
	Rooms            int     `json:"rooms"`
	DistanceLabel    string  `json:"distance_label"`
	SimilarityReason string  `json:"similarity_reason"`
}

// PriceLabel classifies an asking price against the model estimate.
type PriceLabel string

const (
	LabelFair        PriceLabel = "Fair"
	LabelOverpriced  PriceLabel = "Overpriced"
	LabelUnderpriced PriceLabel = "Underpriced"
)

// Estimate is the valuation query result.
type Estimate struct {
	ListingID      string     `json:"listing_id"`
	EstimatedPrice float64    `json:"estimated_price"`
	RangeLow       float64    `json:"range_low"`
	RangeHigh      float64    `json:"range_high"`
	Label          PriceLabel `json:"label"`
}

// NeighborhoodInsight aggregates prices for one zone.
type NeighborhoodInsight struct {
	Neighborhood   string  `json:"neighborhood"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
	AvgPrice       float64 `json:"avg_price"`
	ListingCount   int     `json:"listing_count"`
}

// InsightReport holds the computed market analytics over the canonical dataset.
type InsightReport struct {
	TotalListings            int                   `json:"total_listings"`
	OverallMedianPrice       float64               `json:"overall_median_price"`
	OverallMedianPricePerSqm float64               `json:"overall_median_price_per_sqm"`
	MinPrice                 float64               `json:"min_price"`
	MaxPrice                 float64               `json:"max_price"`
	MostExpensive            *Listing              `json:"most_expensive,omitempty"`
	NeighborhoodCount        int                   `json:"neighborhood_count"`
	Neighborhoods            []NeighborhoodInsight `json:"neighborhoods"`
}
