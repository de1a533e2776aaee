package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"realestate-comps/api"
	"realestate-comps/config"
	"realestate-comps/geo"
	"realestate-comps/scraper/listingpage"
	"realestate-comps/services"
	"realestate-comps/storage"
)

func (a *app) cleanCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean raw listings into the canonical dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				input = a.cfg.RawPath
			}
			a.logger.Info("=== Cleaning pipeline starting ===")

			records, err := storage.LoadRaw(input)
			if err != nil {
				return err
			}
			opts, err := a.cleaningOptions()
			if err != nil {
				return err
			}
			res := services.NewDatasetBuilder(a.logger, a.extractor, opts, a.zoneOptions()).Build(records)
			if len(res.Listings) == 0 {
				return fmt.Errorf("all %d records were dropped during cleaning", len(records))
			}

			if err := storage.WriteDatasetJSON(a.cfg.DataPath, res.Listings); err != nil {
				return err
			}
			csvPath := filepath.Join(a.cfg.OutputDir, "cleaned_data.csv")
			w, err := storage.NewCSVWriter(csvPath)
			if err != nil {
				return err
			}
			if err := w.Write(res.Listings); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			auditPath := filepath.Join(a.cfg.OutputDir, "audit_log.csv")
			if err := storage.WriteAuditCSV(auditPath, res.Audit.Entries()); err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				run := storage.NewRun(input, len(records))
				if err := store.Save(cmd.Context(), run, res.Listings, res.Audit.Entries()); err != nil {
					return err
				}
				a.logger.Info("[store] run %s saved to %s", run.ID, a.cfg.StoreDriver)
			}

			for _, e := range res.Audit.Entries() {
				a.logger.Info("[audit] %-26s %d", e.Stage, e.Affected)
			}
			fmt.Printf("  Done. %d listings → %s | CSV → %s | audit → %s\n\n",
				len(res.Listings), a.cfg.DataPath, csvPath, auditPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw JSON or CSV file (default RAW_PATH)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve comps, estimates and market insights over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			ctx, stop := signalContext()
			defer stop()

			catalog, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close()
			return api.NewServer(addr, catalog, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

func (a *app) compsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "comps [listing-id]",
		Short: "Print the most similar listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer catalog.Close()

			comps, err := catalog.Comps(args[0], n)
			if err != nil {
				return err
			}
			fmt.Printf("\n  Comparables for listing #%s\n", args[0])
			for _, c := range comps {
				fmt.Printf("  #%-6s €%-10.0f %6.0f m²  %d rooms  %-7s %s\n",
					c.ID, c.Price, c.Sqm, c.Rooms, c.DistanceLabel, c.SimilarityReason)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of comps (default N_COMPS)")
	return cmd
}

func (a *app) estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [listing-id]",
		Short: "Estimate a listing's price and label it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer catalog.Close()

			listing, err := catalog.Listing(args[0])
			if err != nil {
				return err
			}
			est, err := catalog.Estimate(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n  Listing #%s  asking €%.0f\n", est.ListingID, listing.Price)
			fmt.Printf("  Estimate  €%.2f  (range €%.2f – €%.2f)\n", est.EstimatedPrice, est.RangeLow, est.RangeHigh)
			fmt.Printf("  Verdict   %s\n\n", est.Label)
			return nil
		},
	}
}

func (a *app) insightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Print the market insights report",
		RunE: func(cmd *cobra.Command, args []string) error {
			listings, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			svc := services.NewInsightService(a.logger)
			svc.Print(svc.Generate(listings))
			return nil
		},
	}
}

func (a *app) scrapeCmd() *cobra.Command {
	var urlsFile, out string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Render listing pages with headless Chrome into raw records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if urlsFile == "" {
				urlsFile = a.cfg.URLsFile
			}
			if out == "" {
				out = a.cfg.RawPath
			}
			urls, err := listingpage.ReadURLs(urlsFile)
			if err != nil {
				return err
			}
			a.logger.Info("Config — concurrency: %d | rate: %dms | retries: %d",
				a.cfg.MaxConcurrency, a.cfg.RateLimitMs, a.cfg.MaxRetries)

			ctx, stop := signalContext()
			defer stop()

			s := listingpage.New(a.cfg, a.logger)
			defer s.Close()
			records, err := s.Scrape(ctx, urls)
			if err != nil {
				a.logger.Warn("[scraper] %v; keeping %d records", err, len(records))
			}
			if len(records) == 0 {
				return fmt.Errorf("no listings were scraped")
			}
			if err := storage.WriteRawJSON(out, records); err != nil {
				return err
			}
			a.logger.Info("Raw records saved to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&urlsFile, "urls", "", "file with one listing url per line (default URLS_FILE)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "raw JSON output (default RAW_PATH)")
	return cmd
}

func (a *app) gazetteerCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "gazetteer",
		Short: "Fetch neighbourhood names from OpenStreetMap into the zones file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.ZonesFile
			}
			if out == "" {
				return fmt.Errorf("gazetteer: set ZONES_FILE or --out")
			}
			box, err := geo.ParseBBox(a.cfg.BBox)
			if err != nil {
				return fmt.Errorf("config: BBOX: %w", err)
			}

			ctx, stop := signalContext()
			defer stop()
			names, err := geo.NewOverpassGazetteer(a.cfg.OverpassURL, 60*time.Second).PlaceNames(ctx, box)
			if err != nil {
				return err
			}

			zones := &config.ZonesFile{ZoneNames: a.zones.ZoneNames, Source: "overpass " + box.String()}
			seen := map[string]bool{}
			for _, n := range append(append([]string{}, a.zones.Gazetteer...), names...) {
				if !seen[n] {
					seen[n] = true
					zones.Gazetteer = append(zones.Gazetteer, n)
				}
			}
			if err := config.SaveZones(out, zones); err != nil {
				return err
			}
			a.logger.Info("[gazetteer] %d place names (%d from Overpass) written to %s", len(zones.Gazetteer), len(names), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "zones YAML to write (default ZONES_FILE)")
	return cmd
}
