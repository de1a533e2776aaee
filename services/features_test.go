package services

import (
	"testing"

	"realestate-comps/models"
)

func TestFeatureVectorOrder(t *testing.T) {
	l := tiranaListings()[4]
	v := FeatureVectorOf(&l, FeatureMedians(tiranaListings()))
	want := models.FeatureVector{140, 7, 4, 2, 1, 1, 0.8, 6, 0, 0.8}
	if len(v) != len(models.FeatureColumns) {
		t.Fatalf("vector length %d; want %d", len(v), len(models.FeatureColumns))
	}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("%s = %v; want %v", models.FeatureColumns[i], v[i], want[i])
		}
	}
}

func TestFeatureMedianImputation(t *testing.T) {
	rows := []models.Listing{
		{Sqm: 50, Floor: fp(1), ClusterID: 0},
		{Sqm: 60, Floor: fp(3), ClusterID: 2},
		{Sqm: 70, ClusterID: models.NoCluster},
	}
	m := FeatureMatrix(rows)
	floor := 1
	cluster := 8
	if m[2][floor] != 2 {
		t.Errorf("imputed floor = %v; want median 2", m[2][floor])
	}
	if m[2][cluster] != 1 {
		t.Errorf("imputed cluster = %v; want median 1", m[2][cluster])
	}
	if m[0][floor] != 1 {
		t.Errorf("known floor changed to %v", m[0][floor])
	}
}

// Medians come from the dataset the vector is built against, so the same
// listing projects differently once the dataset changes.
func TestFeatureVectorsDriftWithDataset(t *testing.T) {
	target := models.Listing{Sqm: 70}
	small := []models.Listing{target, {Sqm: 50, Floor: fp(1)}, {Sqm: 60, Floor: fp(3)}}
	grown := append(append([]models.Listing(nil), small...),
		models.Listing{Sqm: 80, Floor: fp(9)}, models.Listing{Sqm: 90, Floor: fp(11)})

	before := FeatureVectorOf(&target, FeatureMedians(small))
	after := FeatureVectorOf(&target, FeatureMedians(grown))
	if before[1] == after[1] {
		t.Errorf("imputed floor stayed %v after the dataset changed; want drift", before[1])
	}
}

func TestFeatureMediansEmptyColumn(t *testing.T) {
	m := FeatureMedians([]models.Listing{{Sqm: 10}})
	if m[1] != 0 {
		t.Errorf("median of an all-missing column = %v; want 0", m[1])
	}
}
