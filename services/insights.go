package services

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"realestate-comps/models"
	"realestate-comps/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate aggregates prices per zone, sorted by average price per m² descending.
func (s *InsightService) Generate(listings []models.Listing) *models.InsightReport {
	report := &models.InsightReport{Neighborhoods: []models.NeighborhoodInsight{}}
	if len(listings) == 0 {
		return report
	}
	report.TotalListings = len(listings)

	type agg struct {
		ppsqm, price float64
		count        int
	}
	groups := make(map[string]*agg)
	prices := make([]float64, 0, len(listings))
	ppsqms := make([]float64, 0, len(listings))

	report.MinPrice = listings[0].Price
	for i := range listings {
		l := &listings[i]
		prices = append(prices, l.Price)
		if l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if report.MostExpensive == nil || l.Price > report.MostExpensive.Price {
			report.MostExpensive = l
		}
		if l.Sqm <= 0 {
			continue
		}
		v := l.Price / l.Sqm
		ppsqms = append(ppsqms, v)
		if l.Neighborhood == "" {
			continue
		}
		g, ok := groups[l.Neighborhood]
		if !ok {
			g = &agg{}
			groups[l.Neighborhood] = g
		}
		g.ppsqm += v
		g.price += l.Price
		g.count++
	}
	report.MaxPrice = round2(report.MostExpensive.Price)
	report.MinPrice = round2(report.MinPrice)
	report.OverallMedianPrice = round2(median(prices))
	report.OverallMedianPricePerSqm = round2(median(ppsqms))

	for name, g := range groups {
		report.Neighborhoods = append(report.Neighborhoods, models.NeighborhoodInsight{
			Neighborhood:   name,
			AvgPricePerSqm: round2(g.ppsqm / float64(g.count)),
			AvgPrice:       round2(g.price / float64(g.count)),
			ListingCount:   g.count,
		})
	}
	sort.Slice(report.Neighborhoods, func(i, j int) bool {
		a, b := report.Neighborhoods[i], report.Neighborhoods[j]
		if a.AvgPricePerSqm != b.AvgPricePerSqm {
			return a.AvgPricePerSqm > b.AvgPricePerSqm
		}
		return a.Neighborhood < b.Neighborhood
	})
	report.NeighborhoodCount = len(report.Neighborhoods)

	s.logger.Debug("[insights] %d listings across %d zones", report.TotalListings, report.NeighborhoodCount)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	s.Fprint(os.Stdout, r)
}

func (s *InsightService) Fprint(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 TIRANA MARKET INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Zones          : \033[1m%d\033[0m\n", r.NeighborhoodCount)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalListings > 0 {
		fmt.Fprintf(w, "  Median price      : \033[1;32m€%.2f\033[0m\n", r.OverallMedianPrice)
		fmt.Fprintf(w, "  Median price / m² : \033[1;32m€%.2f\033[0m\n", r.OverallMedianPricePerSqm)
		fmt.Fprintf(w, "  Minimum price     : \033[1;32m€%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price     : \033[1;32m€%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		l := r.MostExpensive
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  #%s %s\n", l.ID, truncate(l.Address, 46))
		fmt.Fprintf(w, "  Zone  : %s\n", l.Neighborhood)
		fmt.Fprintf(w, "  Price : \033[1;31m€%.0f\033[0m (%.0f m²)\n", l.Price, l.Sqm)
		fmt.Fprintln(w)
	}

	// Zones by price per m²
	fmt.Fprintf(w, "\033[1;33m  Zones by Price per m²\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Neighborhoods) == 0 {
		fmt.Fprintf(w, "  No zone data\n")
	} else {
		top := r.Neighborhoods[0].AvgPricePerSqm
		for _, n := range r.Neighborhoods {
			bar := ""
			if top > 0 {
				bar = strings.Repeat("█", int(math.Ceil(20*n.AvgPricePerSqm/top)))
			}
			fmt.Fprintf(w, "  %-22s %s €%.0f (%d)\n", truncate(n.Neighborhood, 20), bar, n.AvgPricePerSqm, n.ListingCount)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
