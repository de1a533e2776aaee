package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"realestate-comps/models"
	"realestate-comps/utils"
)

// Audit stage names written by the normalizer.
const (
	StageCoerceFields = "coerce_fields"
	StageTextGapFill  = "text_gap_fill"
	StageDropUnusable = "drop_unusable"
)

// bedsBathsSentinel marks an unknown room count in some sources.
const bedsBathsSentinel = -1

// renames maps source-specific column names onto the canonical schema. Order
// matters when a record carries more than one alias for the same column.
var renames = []struct{ from, to string }{
	{"price_eur", "price"},
	{"price_in_euro", "price"},
	{"area_sqm", "sqm"},
	{"main_property_property_square", "sqm"},
	{"bedrooms", "beds"},
	{"main_property_property_composition_bedrooms", "beds"},
	{"bathrooms", "baths"},
	{"main_property_property_composition_bathrooms", "baths"},
	{"main_property_furnishing_status", "furnishing_status"},
	{"lat", "latitude"},
	{"lng", "longitude"},
}

// Normalizer maps raw records onto canonical listings.
type Normalizer struct {
	logger    *utils.Logger
	extractor *TextExtractor
}

// NewNormalizer creates a Normalizer. The extractor fills price and area gaps
// from descriptions before unusable rows are dropped.
func NewNormalizer(logger *utils.Logger, extractor *TextExtractor) *Normalizer {
	return &Normalizer{logger: logger, extractor: extractor}
}

// Normalize renames, coerces and filters raw records. Malformed fields become
// null and are only counted; rows still missing price or sqm after the text
// gap fill are dropped. Ids are ordinal over the surviving rows.
func (n *Normalizer) Normalize(records []models.RawRecord) ([]models.Listing, []models.AuditEntry) {
	var skips, filled, dropped int
	out := make([]models.Listing, 0, len(records))

	for _, raw := range records {
		rec := canonicalise(raw)
		c := coercer{rec: rec}
		l := c.listing()
		skips += c.skips

		price, sqm := c.price, c.sqm
		if (price == nil || sqm == nil) && l.Description != "" {
			if p, s, ok := n.fillFromText(price, sqm, l.Description); ok {
				price, sqm = p, s
				filled++
			}
		}
		if price == nil || sqm == nil {
			dropped++
			continue
		}
		l.Price, l.Sqm = *price, *sqm
		if l.Sqm > 0 {
			l.PricePerSqm = l.Price / l.Sqm
		}
		out = append(out, l)
	}
	AssignIDs(out)

	now := time.Now()
	entries := []models.AuditEntry{
		{Timestamp: now, Stage: StageCoerceFields, Affected: skips},
		{Timestamp: now, Stage: StageTextGapFill, Affected: filled},
		{Timestamp: now, Stage: StageDropUnusable, Affected: dropped},
	}
	n.logger.Info("[normalizer] %d raw → %d listings (unparseable fields %d, text-filled %d, dropped %d)",
		len(records), len(out), skips, filled, dropped)
	return out, entries
}

func (n *Normalizer) fillFromText(price, sqm *float64, description string) (*float64, *float64, bool) {
	if n.extractor == nil {
		return price, sqm, false
	}
	changed := false
	if sqm == nil {
		if m, ok := n.extractor.Area(description); ok {
			v := m.Value
			sqm, changed = &v, true
		}
	}
	if price == nil {
		if m, ok := n.extractor.Price(description); ok {
			switch {
			case m.Kind == PriceTotal:
				v := m.Value
				price, changed = &v, true
			case m.Kind == PricePerArea && sqm != nil:
				v := m.Value * *sqm
				price, changed = &v, true
			}
		}
	}
	return price, sqm, changed
}

// AssignIDs numbers listings by their current position.
func AssignIDs(listings []models.Listing) {
	for i := range listings {
		listings[i].ID = strconv.Itoa(i)
	}
}

func canonicalise(raw models.RawRecord) map[string]any {
	rec := make(map[string]any, len(raw))
	for k, v := range raw {
		rec[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for _, r := range renames {
		v, ok := rec[r.from]
		if !ok {
			continue
		}
		if cur, exists := rec[r.to]; !exists || cur == nil {
			rec[r.to] = v
		}
		delete(rec, r.from)
	}
	return rec
}

// coercer reads canonical columns with a parse-or-null policy and counts
// values that were present but unparseable.
type coercer struct {
	rec   map[string]any
	skips int

	price, sqm *float64
}

func (c *coercer) listing() models.Listing {
	c.price = c.number("price")
	c.sqm = c.number("sqm")

	l := models.Listing{
		Floor:               c.number("floor"),
		Latitude:            c.number("latitude"),
		Longitude:           c.number("longitude"),
		Description:         normaliseText(c.text("description")),
		Address:             normaliseText(c.text("address")),
		Neighborhood:        normaliseText(c.text("neighborhood")),
		ClusterID:           models.NoCluster,
		DistToNearestCenter: c.number("dist_to_nearest_center"),
		DistanceFromCenter:  c.number("distance_from_center"),
		TotalRooms:          c.number("total_rooms"),
		Balconies:           c.number("balconies"),
		LivingRooms:         c.number("living_rooms"),
		PropertyType:        normaliseText(c.text("property_type")),
		PropertyStatus:      normaliseText(c.text("property_status")),
		City:                normaliseText(c.text("city")),
	}
	if v := c.number("beds"); v != nil && *v != bedsBathsSentinel {
		l.Beds = int(math.Round(*v))
	}
	if v := c.number("baths"); v != nil && *v != bedsBathsSentinel {
		l.Baths = *v
	}
	if v := c.number("neighborhood_cluster"); v != nil {
		l.ClusterID = int(*v)
	}

	l.FurnishingStatus = normaliseFurnishing(c.text("furnishing_status"))
	l.Furnished = l.FurnishingStatus == models.FurnishingFull || l.FurnishingStatus == models.FurnishingPartial

	l.HasElevator = c.flag("has_elevator") == flagTrue
	l.HasGarage = c.flag("has_garage") == flagTrue
	l.HasCarport = c.flag("has_carport") == flagTrue
	l.HasTerrace = c.flag("has_terrace") == flagTrue
	l.HasGarden = c.flag("has_garden") == flagTrue
	l.IsOutlier = c.flag("is_outlier") == flagTrue
	switch c.flag("has_parking_space") {
	case flagTrue:
		l.HasParkingSpace = true
	case flagUnknown:
		l.HasParkingSpace = l.HasGarage || l.HasCarport
	}
	return l
}

func (c *coercer) number(key string) *float64 {
	v, ok := c.rec[key]
	if !ok {
		return nil
	}
	f, status := parseNumber(v)
	if status == parseSkipped {
		c.skips++
	}
	if status != parseOK {
		return nil
	}
	return &f
}

func (c *coercer) text(key string) string {
	switch v := c.rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

type flagState int

const (
	flagUnknown flagState = iota
	flagTrue
	flagFalse
)

func (c *coercer) flag(key string) flagState {
	switch v := c.rec[key].(type) {
	case nil:
		return flagUnknown
	case bool:
		if v {
			return flagTrue
		}
		return flagFalse
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "po":
			return flagTrue
		case "false", "no", "n", "0", "jo":
			return flagFalse
		case "":
			return flagUnknown
		}
		c.skips++
		return flagUnknown
	default:
		f, status := parseNumber(v)
		if status != parseOK {
			return flagUnknown
		}
		if f != 0 {
			return flagTrue
		}
		return flagFalse
	}
}

type parseStatus int

const (
	parseNull parseStatus = iota
	parseOK
	parseSkipped
)

func parseNumber(v any) (float64, parseStatus) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, parseNull
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, parseSkipped
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		switch strings.ToLower(s) {
		case "", "null", "none", "nan", "n/a":
			return 0, parseNull
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, " ", ""), 64)
		if err != nil {
			return 0, parseSkipped
		}
		f = parsed
	default:
		return 0, parseSkipped
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, parseNull
	}
	return f, parseOK
}

func normaliseFurnishing(s string) string {
	s = strings.ToLower(normaliseText(s))
	if s == "" {
		return models.FurnishingUnknown
	}
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
