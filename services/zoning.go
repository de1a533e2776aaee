package services

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"realestate-comps/geo"
	"realestate-comps/models"
	"realestate-comps/utils"
)

// DefaultZoneNames are handed out from the innermost cluster outwards.
var DefaultZoneNames = []string{"City Center", "Inner City", "Outer City"}

const (
	kmeansMaxIter = 300
	kmeansInits   = 10
)

// ZoneOptions parameterise clustering and zone naming.
type ZoneOptions struct {
	K           int
	Center      geo.Point
	Names       []string
	PriceWeight float64
	Seed        int64
}

// DefaultZoneOptions returns k=3 around central Tirana.
func DefaultZoneOptions() ZoneOptions {
	return ZoneOptions{
		K:           3,
		Center:      geo.Point{Lat: 41.3275, Lng: 19.8187},
		Names:       DefaultZoneNames,
		PriceWeight: 0.7,
		Seed:        42,
	}
}

// Zoner clusters listings by location and price per area and names the clusters.
type Zoner struct {
	logger *utils.Logger
	opts   ZoneOptions
}

// NewZoner creates a Zoner.
func NewZoner(logger *utils.Logger, opts ZoneOptions) *Zoner {
	if opts.K < 1 {
		opts.K = 1
	}
	if len(opts.Names) == 0 {
		opts.Names = DefaultZoneNames
	}
	return &Zoner{logger: logger, opts: opts}
}

// Assign returns a copy of rows with cluster ids, distances and zone names
// filled in, plus the cluster naming it used.
func (z *Zoner) Assign(rows []models.Listing) ([]models.Listing, models.ClusterAssignment) {
	out := append([]models.Listing(nil), rows...)

	var located []int
	for i := range out {
		if out[i].HasCoordinates() {
			located = append(located, i)
			if out[i].DistanceFromCenter == nil {
				d := geo.HaversineKm(z.opts.Center, geo.Point{Lat: *out[i].Latitude, Lng: *out[i].Longitude})
				out[i].DistanceFromCenter = &d
			}
		}
	}

	if len(located) > 0 {
		x := z.featureMatrix(out, located)
		labels, dists := kmeans(x, min(z.opts.K, len(located)), z.opts.Seed)
		// Raw cluster ids on rows without coordinates would skew the naming.
		for i := range out {
			if !out[i].HasCoordinates() {
				out[i].ClusterID = models.NoCluster
				out[i].DistToNearestCenter = nil
			}
		}
		for k, i := range located {
			d := dists[k]
			out[i].ClusterID = labels[k]
			out[i].DistToNearestCenter = &d
		}
	} else {
		z.logger.Warn("[zoning] no listing has coordinates; keeping existing cluster ids")
	}

	assignment := NameZones(out, z.opts.Names)
	for i := range out {
		out[i].Neighborhood = assignment.Name(out[i].ClusterID)
	}
	z.logger.Info("[zoning] %d listings clustered into %d zones", len(located), len(assignment.Order))
	return out, assignment
}

// featureMatrix builds min-max scaled latitude, longitude and weighted price per area.
func (z *Zoner) featureMatrix(rows []models.Listing, idx []int) [][]float64 {
	lat := make([]float64, len(idx))
	lng := make([]float64, len(idx))
	ppsqm := make([]float64, len(idx))
	for k, i := range idx {
		lat[k] = *rows[i].Latitude
		lng[k] = *rows[i].Longitude
		ppsqm[k] = rows[i].PricePerSqm
	}
	minMaxScale(lat)
	minMaxScale(lng)
	minMaxScale(ppsqm)
	floats.Scale(z.opts.PriceWeight, ppsqm)

	x := make([][]float64, len(idx))
	for k := range idx {
		x[k] = []float64{lat[k], lng[k], ppsqm[k]}
	}
	return x
}

// NameZones ranks clusters by mean distance from the city center and gives the
// closest one names[0]. Clusters with no distance information fall back to
// ascending cluster id order; with no clusters at all every row is Unknown.
func NameZones(rows []models.Listing, names []string) models.ClusterAssignment {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	seen := make(map[int]struct{})
	var ids []int
	for _, l := range rows {
		if l.ClusterID == models.NoCluster {
			continue
		}
		if _, ok := seen[l.ClusterID]; !ok {
			seen[l.ClusterID] = struct{}{}
			ids = append(ids, l.ClusterID)
		}
		if l.DistanceFromCenter != nil {
			sums[l.ClusterID] += *l.DistanceFromCenter
			counts[l.ClusterID]++
		}
	}
	if len(ids) == 0 {
		return models.ClusterAssignment{Names: map[int]string{}}
	}
	sort.Ints(ids)

	byDistance := true
	for _, id := range ids {
		if counts[id] == 0 {
			byDistance = false
			break
		}
	}
	if byDistance {
		mean := func(id int) float64 { return sums[id] / float64(counts[id]) }
		sort.SliceStable(ids, func(a, b int) bool { return mean(ids[a]) < mean(ids[b]) })
	}

	assignment := models.ClusterAssignment{Names: make(map[int]string, len(ids)), Order: ids}
	for rank, id := range ids {
		if rank < len(names) {
			assignment.Names[id] = names[rank]
		} else {
			assignment.Names[id] = fmt.Sprintf("Zone %d", rank+1)
		}
	}
	return assignment
}

// minMaxScale rescales s in place to [0, 1]; a constant column becomes 0.
func minMaxScale(s []float64) {
	if len(s) == 0 {
		return
	}
	lo, hi := floats.Min(s), floats.Max(s)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range s {
		s[i] = (s[i] - lo) / span
	}
}

// kmeans clusters x into k groups with k-means++ seeding and Lloyd iterations,
// keeping the lowest-inertia of several seeded restarts. It returns each
// row's cluster and its distance to that cluster's centroid.
func kmeans(x [][]float64, k int, seed int64) ([]int, []float64) {
	rng := rand.New(rand.NewSource(seed))
	var bestLabels []int
	var bestDists []float64
	bestInertia := math.Inf(1)
	for run := 0; run < kmeansInits; run++ {
		labels, dists := lloyd(x, seedCentroids(x, k, rng))
		inertia := 0.0
		for _, d := range dists {
			inertia += d * d
		}
		if inertia < bestInertia {
			bestInertia, bestLabels, bestDists = inertia, labels, dists
		}
	}
	return bestLabels, bestDists
}

func seedCentroids(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))
	d2 := make([]float64, len(x))
	for len(centroids) < k {
		total := 0.0
		for i, p := range x {
			_, d := nearest(p, centroids)
			d2[i] = d * d
			total += d2[i]
		}
		next := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range d2 {
				r -= w
				if r <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(x))
		}
		centroids = append(centroids, append([]float64(nil), x[next]...))
	}
	return centroids
}

func lloyd(x [][]float64, centroids [][]float64) ([]int, []float64) {
	labels := make([]int, len(x))
	dists := make([]float64, len(x))
	for i := range labels {
		labels[i] = -1
	}
	dim := len(x[0])
	for iter := 0; iter < kmeansMaxIter; iter++ {
		moved := false
		for i, p := range x {
			c, d := nearest(p, centroids)
			if c != labels[i] {
				labels[i] = c
				moved = true
			}
			dists[i] = d
		}
		if !moved {
			break
		}
		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range x {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return labels, dists
}

func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}
