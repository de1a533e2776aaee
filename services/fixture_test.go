package services

import (
	"io"
	"math"
	"strconv"

	"realestate-comps/models"
	"realestate-comps/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, utils.LevelError) }

func fp(v float64) *float64 { return &v }

// tiranaListings is a 10-row dataset covering every column the queries touch.
func tiranaListings() []models.Listing {
	type row struct {
		price, sqm   float64
		beds         int
		baths, floor float64
		status       string
		cluster      int
		nearest      float64
		propType     string
		lat, lng     float64
		rooms        float64
		desc         string
		elevator     bool
		parking      bool
		garden       bool
		fromCenter   float64
	}
	rows := []row{
		{95000, 75, 2, 1, 3, models.FurnishingFull, 0, 1.2, "apartment", 41.33, 19.82, 3, "Nice flat in Blloku", true, false, false, 1.5},
		{65000, 55, 1, 1, 2, models.FurnishingNone, 1, 2.5, "apartment", 41.32, 19.81, 2, "Studio near center", false, false, false, 2.8},
		{150000, 110, 3, 2, 5, models.FurnishingFull, 0, 1.0, "apartment", 41.34, 19.83, 5, "Spacious 3-bed", true, true, false, 1.0},
		{45000, 40, 1, 1, 1, models.FurnishingNone, 2, 4.0, "apartment", 41.30, 19.79, 2, "Affordable unit", false, false, false, 4.5},
		{200000, 140, 4, 2, 7, models.FurnishingFull, 0, 0.8, "villa", 41.35, 19.84, 6, "Luxury penthouse", true, true, true, 0.8},
		{80000, 70, 2, 1, 4, models.FurnishingPartial, 1, 2.2, "apartment", 41.31, 19.80, 3, "Partially furnished", true, false, false, 2.5},
		{55000, 50, 1, 1, 2, models.FurnishingNone, 2, 3.8, "apartment", 41.29, 19.78, 2, "Budget option", false, false, false, 4.0},
		{120000, 90, 3, 1, 6, models.FurnishingFull, 0, 1.5, "apartment", 41.33, 19.82, 4, "3-bed with elevator", true, true, false, 1.8},
		{70000, 65, 2, 1, 3, models.FurnishingNone, 1, 2.8, "apartment", 41.32, 19.81, 3, "Unfurnished 2-bed", false, false, false, 3.0},
		{175000, 125, 4, 2, 8, models.FurnishingFull, 0, 0.9, "apartment", 41.34, 19.83, 6, "Premium 4-bed", true, true, false, 1.2},
	}

	out := make([]models.Listing, len(rows))
	for i, r := range rows {
		out[i] = models.Listing{
			ID:                  strconv.Itoa(i),
			Price:               r.price,
			Sqm:                 r.sqm,
			Beds:                r.beds,
			Baths:               r.baths,
			Floor:               fp(r.floor),
			Latitude:            fp(r.lat),
			Longitude:           fp(r.lng),
			FurnishingStatus:    r.status,
			Furnished:           r.status == models.FurnishingFull || r.status == models.FurnishingPartial,
			Description:         r.desc,
			Neighborhood:        "Cluster " + strconv.Itoa(r.cluster),
			ClusterID:           r.cluster,
			DistToNearestCenter: fp(r.nearest),
			DistanceFromCenter:  fp(r.fromCenter),
			PricePerSqm:         r.price / r.sqm,
			TotalRooms:          fp(r.rooms),
			HasElevator:         r.elevator,
			HasParkingSpace:     r.parking,
			HasGarden:           r.garden,
			PropertyType:        r.propType,
			City:                "Tirana",
		}
	}
	return out
}

// stubModel predicts log1p(1300 * area), so the estimate tracks size only.
type stubModel struct{ calls int }

func (m *stubModel) Predict(x [][]float64) ([]float64, error) {
	m.calls++
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = math.Log1p(row[0] * 1300)
	}
	return out, nil
}

// doublingScaler multiplies every feature by two.
type doublingScaler struct{}

func (doublingScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = 2 * v
		}
	}
	return out, nil
}
