package services

import (
	"fmt"
	"sync"

	"realestate-comps/models"
	"realestate-comps/regression"
	"realestate-comps/utils"
)

// BuildResult is the output of one full cleaning run.
type BuildResult struct {
	Listings []models.Listing
	Zones    models.ClusterAssignment
	Audit    *models.AuditLog
}

// DatasetBuilder turns raw records into the canonical dataset:
// normalize, clean, cluster and name zones, then number the rows.
type DatasetBuilder struct {
	logger     *utils.Logger
	normalizer *Normalizer
	cleaner    *Cleaner
	zoner      *Zoner
}

// NewDatasetBuilder wires the pipeline components around one extractor.
func NewDatasetBuilder(logger *utils.Logger, extractor *TextExtractor, clean CleaningOptions, zones ZoneOptions) *DatasetBuilder {
	return &DatasetBuilder{
		logger:     logger,
		normalizer: NewNormalizer(logger, extractor),
		cleaner:    NewCleaner(logger, extractor, clean),
		zoner:      NewZoner(logger, zones),
	}
}

// Build runs the pipeline over records. The returned audit log holds the
// normalizer entries followed by one entry per cleaning stage.
func (b *DatasetBuilder) Build(records []models.RawRecord) BuildResult {
	audit := &models.AuditLog{}

	listings, entries := b.normalizer.Normalize(records)
	audit.Append(entries...)

	cleaned, entries := b.cleaner.Run(NewSnapshot(listings))
	audit.Append(entries...)

	zoned, zones := b.zoner.Assign(cleaned.Rows())
	AssignIDs(zoned)

	b.logger.Info("[pipeline] %d raw records → %d canonical listings", len(records), len(zoned))
	return BuildResult{Listings: zoned, Zones: zones, Audit: audit}
}

// CatalogOptions configure the query side of a Catalog.
type CatalogOptions struct {
	Model     regression.Regressor
	Scaler    regression.Scaler
	Valuation ValuationOptions
	CompsN    int
}

// Catalog is the read-only query context built once at startup. Every query
// reads the same dataset; nothing mutates it after NewCatalog returns.
type Catalog struct {
	listings  []models.Listing
	byID      map[string]int
	model     regression.Regressor
	scaler    regression.Scaler
	valuation ValuationOptions
	compsN    int
	insights  *InsightService

	closeOnce sync.Once
}

// NewCatalog copies listings into a new Catalog. An empty dataset, or one with
// a listing whose price or area is not positive, is ErrDataUnavailable.
func NewCatalog(logger *utils.Logger, listings []models.Listing, opts CatalogOptions) (*Catalog, error) {
	if len(listings) == 0 {
		return nil, fmt.Errorf("catalog: no listings: %w", models.ErrDataUnavailable)
	}
	if opts.CompsN <= 0 {
		opts.CompsN = models.DefaultCompsN
	}
	if opts.Valuation == (ValuationOptions{}) {
		opts.Valuation = DefaultValuationOptions()
	}

	c := &Catalog{
		listings:  append([]models.Listing(nil), listings...),
		byID:      make(map[string]int, len(listings)),
		model:     opts.Model,
		scaler:    opts.Scaler,
		valuation: opts.Valuation,
		compsN:    opts.CompsN,
		insights:  NewInsightService(logger),
	}
	for i, l := range c.listings {
		if l.Price <= 0 || l.Sqm <= 0 {
			return nil, fmt.Errorf("catalog: listing %q has price %v and area %v: %w",
				l.ID, l.Price, l.Sqm, models.ErrDataUnavailable)
		}
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate listing id %q", l.ID)
		}
		c.byID[l.ID] = i
	}
	if c.model == nil {
		logger.Warn("[catalog] no price model loaded; estimates will be unavailable")
	}
	return c, nil
}

// Len returns the number of listings.
func (c *Catalog) Len() int { return len(c.listings) }

// HasModel reports whether estimates can be served.
func (c *Catalog) HasModel() bool { return c.model != nil }

// Listing returns one listing by id.
func (c *Catalog) Listing(id string) (models.Listing, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Listing{}, fmt.Errorf("listing %q: %w", id, models.ErrNotFound)
	}
	return c.listings[i], nil
}

// Comps returns the n most similar listings; n <= 0 uses the configured default.
func (c *Catalog) Comps(id string, n int) ([]models.Comp, error) {
	if n <= 0 {
		n = c.compsN
	}
	return FindComps(c.listings, id, n)
}

// Estimate values one listing with the loaded model.
func (c *Catalog) Estimate(id string) (models.Estimate, error) {
	return EstimatePrice(c.listings, id, c.model, c.scaler, c.valuation)
}

// Insights aggregates the market report.
func (c *Catalog) Insights() *models.InsightReport {
	return c.insights.Generate(c.listings)
}

// Browse filters and paginates the dataset.
func (c *Catalog) Browse(f ListingFilter) ListingPage {
	return FilterListings(c.listings, f)
}

// FilterOptions returns the distinct filter values of the dataset.
func (c *Catalog) FilterOptions() FilterOptions {
	return BuildFilterOptions(c.listings)
}

// Close drops the dataset and model references. The catalog must not be used afterwards.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() {
		c.listings = nil
		c.byID = nil
		c.model = nil
		c.scaler = nil
	})
	return nil
}
