package services

import (
	"math"
	"testing"

	"realestate-comps/models"
)

func newTestCleaner(mod func(*CleaningOptions)) *Cleaner {
	opts := DefaultCleaningOptions()
	if mod != nil {
		mod(&opts)
	}
	return NewCleaner(newTestLogger(), NewTextExtractor(), opts)
}

func TestRemoveImpossibleValues(t *testing.T) {
	c := newTestCleaner(nil)
	in := NewSnapshot([]models.Listing{
		{Price: 100000, Sqm: 80},
		{Price: 0, Sqm: 80},
		{Price: 100000, Sqm: -1},
		{Price: 100000, Sqm: 80, Beds: -2},
		{Price: 100000, Sqm: 80, Baths: -1},
	})
	out, dropped := c.RemoveImpossibleValues(in)
	if out.Len() != 1 || dropped != 4 {
		t.Errorf("RemoveImpossibleValues kept %d, dropped %d; want 1, 4", out.Len(), dropped)
	}
	if in.Len() != 5 {
		t.Errorf("input snapshot changed length to %d", in.Len())
	}
}

func TestFilterLocation(t *testing.T) {
	c := newTestCleaner(nil)
	in := NewSnapshot([]models.Listing{
		{Price: 1, Sqm: 1, Latitude: fp(41.33), Longitude: fp(19.82)},
		{Price: 1, Sqm: 1, Latitude: fp(42.00), Longitude: fp(19.82)},
		{Price: 1, Sqm: 1},
		{Price: 1, Sqm: 1, Latitude: fp(41.25), Longitude: fp(20.00)},
	})
	out, dropped := c.FilterLocation(in)
	if out.Len() != 3 || dropped != 1 {
		t.Errorf("FilterLocation kept %d, dropped %d; want 3, 1", out.Len(), dropped)
	}
}

func TestBackfillFromText(t *testing.T) {
	c := newTestCleaner(nil)
	in := NewSnapshot([]models.Listing{
		{ID: "0", Price: 50000, Sqm: 85, Description: "Apartment, 85 m2 bruto, 900€/m2"},
		{ID: "1", Price: 90000, Sqm: 900, Description: "Flat of 90 m2 bruto in Blloku"},
		{ID: "2", Price: 90000, Sqm: 90, Description: "Adresa: Rruga Sami Frasheri", Address: ""},
	})
	out, changed := c.BackfillFromText(in)
	rows := out.Rows()
	if changed != 2 {
		t.Errorf("BackfillFromText changed %d rows; want 2", changed)
	}
	if rows[0].Price != 76500 {
		t.Errorf("row 0 price: got %v, want 76500", rows[0].Price)
	}
	if rows[1].Sqm != 90 || rows[1].PricePerSqm != 1000 {
		t.Errorf("row 1 sqm %v ppsqm %v; want 90 and 1000", rows[1].Sqm, rows[1].PricePerSqm)
	}
	if rows[1].Address != "Blloku" {
		t.Errorf("row 1 address: got %q, want Blloku", rows[1].Address)
	}
	if rows[2].Address != "Rruga Sami Frasheri" {
		t.Errorf("row 2 address: got %q", rows[2].Address)
	}
	if in.Rows()[0].Price != 50000 {
		t.Error("BackfillFromText modified its input snapshot")
	}
}

func TestDuplicateSignature(t *testing.T) {
	a := models.Listing{Price: 96000, Sqm: 75, Description: "Nice flat"}
	b := models.Listing{Price: 99999, Sqm: 79, Description: "NICE FLAT"}
	c := models.Listing{Price: 100000, Sqm: 75, Description: "Nice flat"}
	if DuplicateSignature(a) != DuplicateSignature(b) {
		t.Error("same bucket and case-insensitive description should share a signature")
	}
	if DuplicateSignature(a) == DuplicateSignature(c) {
		t.Error("different price buckets should not share a signature")
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"bright flat near park", "bright flat near park", 1},
		{"bright flat near park", "bright flat near lake", 0.6},
		{"a b c", "bright", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		if got := Jaccard(wordSet(tt.a), wordSet(tt.b)); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Jaccard(%q, %q) = %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRemoveDuplicates(t *testing.T) {
	c := newTestCleaner(nil)
	desc := "Spacious apartment with balcony close to Blloku and park"
	in := NewSnapshot([]models.Listing{
		{ID: "a", Price: 100000, Sqm: 80, Description: desc},
		{ID: "b", Price: 120000, Sqm: 80, Description: "Completely different villa"},
		{ID: "c", Price: 100000, Sqm: 80, Description: desc},
		{ID: "d", Price: 100000, Sqm: 80, Description: "spacious APARTMENT with balcony close to blloku and park"},
		{ID: "e", Price: 160000, Sqm: 80, Description: desc},
	})
	out, dropped := c.RemoveDuplicates(in)
	if dropped != 2 {
		t.Fatalf("RemoveDuplicates dropped %d; want 2", dropped)
	}
	var ids []string
	for _, l := range out.Rows() {
		ids = append(ids, l.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "e" {
		t.Errorf("kept %v; want [a b e] (earliest kept, other bucket untouched)", ids)
	}

	again, droppedAgain := c.RemoveDuplicates(out)
	if droppedAgain != 0 || again.Len() != out.Len() {
		t.Errorf("second pass dropped %d; want 0", droppedAgain)
	}
}

func TestOutlierBoundsOrdering(t *testing.T) {
	values := []float64{900, 1100, 1200, 1250, 1300, 1400, 5000, 80}
	for _, k := range []float64{0, 0.5, 1.5, 2.5, 10} {
		b, ok := OutlierBounds(values, k)
		if !ok {
			t.Fatal("OutlierBounds reported no data")
		}
		if !(b.Lower <= b.Q1 && b.Q1 <= b.Q3 && b.Q3 <= b.Upper) {
			t.Errorf("k=%v: bounds %+v violate lower <= Q1 <= Q3 <= upper", k, b)
		}
	}
	if _, ok := OutlierBounds(nil, 1); ok {
		t.Error("OutlierBounds(nil) ok = true; want false")
	}
}

func TestOutlierBoundsLinearQuartiles(t *testing.T) {
	tests := []struct {
		values           []float64
		k                float64
		q1, q3, lo, high float64
	}{
		{[]float64{1, 2, 3, 4}, 0, 1.75, 3.25, 1.75, 3.25},
		{[]float64{4, 1, 3, 2}, 1.5, 1.75, 3.25, -0.5, 5.5},
		{[]float64{10, 20, 30, 40, 50}, 1, 20, 40, 0, 60},
		{[]float64{7}, 1.5, 7, 7, 7, 7},
	}
	for _, tt := range tests {
		b, _ := OutlierBounds(tt.values, tt.k)
		if b.Q1 != tt.q1 || b.Q3 != tt.q3 || b.Lower != tt.lo || b.Upper != tt.high {
			t.Errorf("OutlierBounds(%v, %v) = %+v; want Q1 %v Q3 %v fences [%v, %v]",
				tt.values, tt.k, b, tt.q1, tt.q3, tt.lo, tt.high)
		}
	}
}

func outlierSnapshot() Snapshot {
	rows := make([]models.Listing, 0, 9)
	for _, p := range []float64{100000, 104000, 96000, 98000, 102000, 101000, 99000, 103000} {
		rows = append(rows, models.Listing{Price: p, Sqm: 100})
	}
	rows = append(rows, models.Listing{Price: 900000, Sqm: 100})
	return NewSnapshot(rows)
}

func TestHandleOutliersPolicies(t *testing.T) {
	tests := []struct {
		policy      OutlierPolicy
		wantLen     int
		wantAffect  int
		checkLatest func(t *testing.T, l models.Listing)
	}{
		{OutlierDelete, 8, 1, nil},
		{OutlierFlag, 9, 1, func(t *testing.T, l models.Listing) {
			if !l.IsOutlier || l.Price != 900000 {
				t.Errorf("flagged row = %+v; want IsOutlier with price untouched", l)
			}
		}},
		{OutlierCap, 9, 1, func(t *testing.T, l models.Listing) {
			if l.Price >= 900000 || math.Abs(l.Price-l.PricePerSqm*l.Sqm) > 1e-6 {
				t.Errorf("capped row = %+v; want price clipped and recomputed", l)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			c := newTestCleaner(func(o *CleaningOptions) { o.OutlierPolicy = tt.policy })
			out, n := c.HandleOutliers(outlierSnapshot())
			if out.Len() != tt.wantLen || n != tt.wantAffect {
				t.Errorf("len %d, affected %d; want %d, %d", out.Len(), n, tt.wantLen, tt.wantAffect)
			}
			if tt.checkLatest != nil {
				rows := out.Rows()
				tt.checkLatest(t, rows[len(rows)-1])
			}
		})
	}
}

func TestValidateRangesInclusive(t *testing.T) {
	c := newTestCleaner(nil)
	in := NewSnapshot([]models.Listing{
		{Price: 10000, Sqm: 15},
		{Price: 2000000, Sqm: 300},
		{Price: 9999, Sqm: 50},
		{Price: 50000, Sqm: 301},
	})
	out, dropped := c.ValidateRanges(in)
	if out.Len() != 2 || dropped != 2 {
		t.Errorf("ValidateRanges kept %d, dropped %d; want 2, 2", out.Len(), dropped)
	}
}

func TestRunAuditsEveryStage(t *testing.T) {
	c := newTestCleaner(nil)
	rows := tiranaListings()
	rows = append(rows,
		models.Listing{Price: -5, Sqm: 60},
		models.Listing{Price: 80000, Sqm: 60, Latitude: fp(40.0), Longitude: fp(19.8)},
	)
	out, entries := c.Run(NewSnapshot(rows))

	want := []string{StageImpossibleValues, StageLocationFilter, StageTextBackfill,
		StageDuplicates, StageOutliers, StageRangeValidation}
	if len(entries) != len(want) {
		t.Fatalf("Run wrote %d audit entries; want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Stage != want[i] {
			t.Errorf("entry %d stage = %q; want %q", i, e.Stage, want[i])
		}
	}
	if entries[0].Affected != 1 || entries[1].Affected != 1 {
		t.Errorf("impossible/location affected = %d/%d; want 1/1", entries[0].Affected, entries[1].Affected)
	}
	for _, l := range out.Rows() {
		if l.Price <= 0 || l.Sqm <= 0 {
			t.Errorf("listing %s has price %v sqm %v after cleaning", l.ID, l.Price, l.Sqm)
		}
	}
	if out.Len() != 10 {
		t.Errorf("Run kept %d rows; want the 10 valid ones", out.Len())
	}
}
