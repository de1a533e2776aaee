package services

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"realestate-comps/geo"
	"realestate-comps/models"
	"realestate-comps/utils"
)

// Cleaning stage names, in execution order.
const (
	StageImpossibleValues = "remove_impossible_values"
	StageLocationFilter   = "filter_location"
	StageTextBackfill     = "text_backfill"
	StageDuplicates       = "remove_duplicates"
	StageOutliers         = "handle_outliers"
	StageRangeValidation  = "validate_ranges"
)

// OutlierPolicy decides what the outlier stage does with out-of-bounds rows.
type OutlierPolicy string

const (
	OutlierDelete OutlierPolicy = "delete"
	OutlierCap    OutlierPolicy = "cap"
	OutlierFlag   OutlierPolicy = "flag"
)

const (
	jaccardThreshold = 0.8
	descBuckets      = 10000
	priceBucketSize  = 5000
	areaBucketSize   = 10
)

// wordRegexp picks the words compared by the duplicate filter.
var wordRegexp = regexp.MustCompile(`[\pL\pN_]{4,}`)

// CleaningOptions parameterise the cleaning stages.
type CleaningOptions struct {
	BBox          geo.BBox
	OutlierK      float64
	OutlierPolicy OutlierPolicy
	MinArea       float64
	MaxArea       float64
	MinPrice      float64
	MaxPrice      float64
}

// DefaultCleaningOptions returns the Tirana defaults.
func DefaultCleaningOptions() CleaningOptions {
	return CleaningOptions{
		BBox:          geo.BBox{MinLat: 41.25, MinLng: 19.65, MaxLat: 41.45, MaxLng: 20.00},
		OutlierK:      2.5,
		OutlierPolicy: OutlierDelete,
		MinArea:       15,
		MaxArea:       300,
		MinPrice:      10000,
		MaxPrice:      2000000,
	}
}

// Snapshot is the dataset as seen between two stages. Stages never modify the
// snapshot they receive; they return a new one.
type Snapshot struct {
	rows []models.Listing
}

// NewSnapshot copies rows into a snapshot.
func NewSnapshot(rows []models.Listing) Snapshot {
	return Snapshot{rows: append([]models.Listing(nil), rows...)}
}

// Len returns the number of rows.
func (s Snapshot) Len() int { return len(s.rows) }

// Rows returns a copy of the rows.
func (s Snapshot) Rows() []models.Listing {
	return append([]models.Listing(nil), s.rows...)
}

// filter builds a new snapshot from the rows keep accepts and reports how many were dropped.
func (s Snapshot) filter(keep func(i int, l *models.Listing) bool) (Snapshot, int) {
	out := make([]models.Listing, 0, len(s.rows))
	for i := range s.rows {
		if keep(i, &s.rows[i]) {
			out = append(out, s.rows[i])
		}
	}
	return Snapshot{rows: out}, len(s.rows) - len(out)
}

// Stage is one pure cleaning transform.
type Stage struct {
	Name  string
	Apply func(Snapshot) (Snapshot, int)
}

// Cleaner runs the audited cleaning stages.
type Cleaner struct {
	logger    *utils.Logger
	extractor *TextExtractor
	opts      CleaningOptions
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger, extractor *TextExtractor, opts CleaningOptions) *Cleaner {
	return &Cleaner{logger: logger, extractor: extractor, opts: opts}
}

// Stages returns the cleaning stages in their fixed order. Later stages rely
// on earlier ones; the outlier stage assumes positive price and area.
func (c *Cleaner) Stages() []Stage {
	return []Stage{
		{StageImpossibleValues, c.RemoveImpossibleValues},
		{StageLocationFilter, c.FilterLocation},
		{StageTextBackfill, c.BackfillFromText},
		{StageDuplicates, c.RemoveDuplicates},
		{StageOutliers, c.HandleOutliers},
		{StageRangeValidation, c.ValidateRanges},
	}
}

// Run applies every stage and returns the final snapshot with one audit entry per stage.
func (c *Cleaner) Run(in Snapshot) (Snapshot, []models.AuditEntry) {
	entries := make([]models.AuditEntry, 0, 6)
	cur := in
	for _, st := range c.Stages() {
		before := cur.Len()
		next, affected := st.Apply(cur)
		entries = append(entries, models.AuditEntry{
			Timestamp: time.Now(),
			Stage:     st.Name,
			Affected:  affected,
		})
		c.logger.Info("[cleaner] %-26s %d → %d rows (affected %d)", st.Name, before, next.Len(), affected)
		cur = next
	}
	return cur, entries
}

// RemoveImpossibleValues drops rows with non-positive price or area and negative room counts.
func (c *Cleaner) RemoveImpossibleValues(s Snapshot) (Snapshot, int) {
	return s.filter(func(_ int, l *models.Listing) bool {
		return l.Price > 0 && l.Sqm > 0 && l.Beds >= 0 && l.Baths >= 0
	})
}

// FilterLocation drops rows whose coordinates fall outside the bounding box.
// Rows without coordinates are kept.
func (c *Cleaner) FilterLocation(s Snapshot) (Snapshot, int) {
	return s.filter(func(_ int, l *models.Listing) bool {
		if !l.HasCoordinates() {
			return true
		}
		return c.opts.BBox.Contains(geo.Point{Lat: *l.Latitude, Lng: *l.Longitude})
	})
}

// BackfillFromText repairs implausible areas, reconciles prices against a
// stated per-area rate and fills empty addresses. It returns the number of
// rows whose price or area changed.
func (c *Cleaner) BackfillFromText(s Snapshot) (Snapshot, int) {
	out := s.Rows()
	if c.extractor == nil {
		return Snapshot{rows: out}, 0
	}
	changed := 0
	for i := range out {
		l := &out[i]
		touched := false

		if l.Sqm < c.opts.MinArea || l.Sqm > c.opts.MaxArea {
			if m, ok := c.extractor.Area(l.Description); ok {
				l.Sqm = m.Value
				touched = true
			}
		}
		if price, ok := c.extractor.ReconcilePrice(l.Price, l.Sqm, l.Description); ok {
			c.logger.Debug("[cleaner] listing %s price %.0f → %.0f from stated rate", l.ID, l.Price, price)
			l.Price = price
			touched = true
		}
		if l.Address == "" {
			l.Address = c.extractor.Address(l.Description)
		}
		if touched {
			l.PricePerSqm = l.Price / l.Sqm
			changed++
		}
	}
	return Snapshot{rows: out}, changed
}

// RemoveDuplicates compares rows that share a coarse signature and drops the
// later row of every pair whose description word sets are more than 80%
// similar. Rows in different signature buckets are never compared.
func (c *Cleaner) RemoveDuplicates(s Snapshot) (Snapshot, int) {
	buckets := make(map[int64][]int)
	var order []int64
	for i := range s.rows {
		sig := DuplicateSignature(s.rows[i])
		if _, ok := buckets[sig]; !ok {
			order = append(order, sig)
		}
		buckets[sig] = append(buckets[sig], i)
	}

	drop := make(map[int]struct{})
	for _, sig := range order {
		idx := buckets[sig]
		if len(idx) < 2 {
			continue
		}
		words := make([]map[string]struct{}, len(idx))
		for k, i := range idx {
			words[k] = wordSet(s.rows[i].Description)
		}
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				if Jaccard(words[a], words[b]) > jaccardThreshold {
					drop[max(idx[a], idx[b])] = struct{}{}
				}
			}
		}
	}

	return s.filter(func(i int, _ *models.Listing) bool {
		_, dup := drop[i]
		return !dup
	})
}

// DuplicateSignature buckets a listing by description hash, price and area.
func DuplicateSignature(l models.Listing) int64 {
	h := int64(xxhash.Sum64String(strings.ToLower(l.Description)) % descBuckets)
	priceBucket := int64(math.Floor(l.Price / priceBucketSize))
	areaBucket := int64(math.Floor(l.Sqm / areaBucketSize))
	return h + priceBucket*100000 + areaBucket*1000000
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func wordSet(description string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordRegexp.FindAllString(strings.ToLower(description), -1) {
		set[w] = struct{}{}
	}
	return set
}

// IQRBounds are the quartiles of price per area and the derived outlier fences.
type IQRBounds struct {
	Q1, Q3       float64
	Lower, Upper float64
}

// OutlierBounds computes [Q1 - k*IQR, Q3 + k*IQR] over values.
func OutlierBounds(values []float64, k float64) (IQRBounds, bool) {
	if len(values) == 0 {
		return IQRBounds{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return IQRBounds{Q1: q1, Q3: q3, Lower: q1 - k*iqr, Upper: q3 + k*iqr}, true
}

// HandleOutliers applies the configured policy to rows whose price per area
// falls outside the IQR fences.
func (c *Cleaner) HandleOutliers(s Snapshot) (Snapshot, int) {
	ppsqm := make([]float64, len(s.rows))
	for i, l := range s.rows {
		ppsqm[i] = l.Price / l.Sqm
	}
	b, ok := OutlierBounds(ppsqm, c.opts.OutlierK)
	if !ok {
		return s, 0
	}
	c.logger.Debug("[cleaner] price/m² fences [%.1f, %.1f] (Q1 %.1f, Q3 %.1f)", b.Lower, b.Upper, b.Q1, b.Q3)
	outside := func(v float64) bool { return v < b.Lower || v > b.Upper }

	switch c.opts.OutlierPolicy {
	case OutlierCap:
		out := s.Rows()
		capped := 0
		for i := range out {
			v := ppsqm[i]
			if !outside(v) {
				continue
			}
			v = math.Min(math.Max(v, b.Lower), b.Upper)
			out[i].PricePerSqm = v
			out[i].Price = v * out[i].Sqm
			capped++
		}
		return Snapshot{rows: out}, capped
	case OutlierFlag:
		out := s.Rows()
		flagged := 0
		for i := range out {
			if outside(ppsqm[i]) {
				out[i].IsOutlier = true
				flagged++
			}
		}
		return Snapshot{rows: out}, flagged
	default:
		return s.filter(func(i int, _ *models.Listing) bool {
			return !outside(ppsqm[i])
		})
	}
}

// ValidateRanges drops rows outside the hard area and price windows, edges included.
func (c *Cleaner) ValidateRanges(s Snapshot) (Snapshot, int) {
	o := c.opts
	return s.filter(func(_ int, l *models.Listing) bool {
		return l.Sqm >= o.MinArea && l.Sqm <= o.MaxArea &&
			l.Price >= o.MinPrice && l.Price <= o.MaxPrice
	})
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
