package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"realestate-comps/config"
	"realestate-comps/geo"
	"realestate-comps/models"
	"realestate-comps/regression"
	"realestate-comps/services"
	"realestate-comps/storage"
	"realestate-comps/utils"
)

// app holds what every subcommand needs after configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	zones     *config.ZonesFile
	extractor *services.TextExtractor
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "realestate",
		Short: "Tirana real-estate comps and valuation",
		Long:  `Cleans raw property listings into a canonical dataset and answers comps, valuation and market queries over it`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(a.cleanCmd())
	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.compsCmd())
	rootCmd.AddCommand(a.estimateCmd())
	rootCmd.AddCommand(a.insightsCmd())
	rootCmd.AddCommand(a.scrapeCmd())
	rootCmd.AddCommand(a.gazetteerCmd())

	if err := rootCmd.Execute(); err != nil {
		if a.logger != nil {
			a.logger.Error("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (a *app) init() error {
	a.cfg = config.Load()
	a.logger = utils.NewLogger()
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	zones, err := config.LoadZones(a.cfg.ZonesFile)
	if err != nil {
		return err
	}
	a.zones = zones
	a.extractor = services.NewTextExtractor(zones.Gazetteer...)
	return nil
}

func (a *app) cleaningOptions() (services.CleaningOptions, error) {
	box, err := geo.ParseBBox(a.cfg.BBox)
	if err != nil {
		return services.CleaningOptions{}, fmt.Errorf("config: BBOX: %w", err)
	}
	return services.CleaningOptions{
		BBox:          box,
		OutlierK:      a.cfg.OutlierK,
		OutlierPolicy: services.OutlierPolicy(a.cfg.OutlierPolicy),
		MinArea:       a.cfg.MinArea,
		MaxArea:       a.cfg.MaxArea,
		MinPrice:      a.cfg.MinPrice,
		MaxPrice:      a.cfg.MaxPrice,
	}, nil
}

func (a *app) zoneOptions() services.ZoneOptions {
	opts := services.DefaultZoneOptions()
	opts.K = a.cfg.ZoneCount
	opts.Center = geo.Point{Lat: a.cfg.CityCenterLat, Lng: a.cfg.CityCenterLng}
	if len(a.zones.ZoneNames) > 0 {
		opts.Names = a.zones.ZoneNames
	}
	return opts
}

// openStore returns nil when STORE_DRIVER is none.
func (a *app) openStore() (*storage.SQLStore, error) {
	switch a.cfg.StoreDriver {
	case "postgres":
		return storage.NewPostgresStore(a.cfg.DSN())
	case "sqlite":
		return storage.NewSQLiteStore(a.cfg.SQLitePath)
	default:
		return nil, nil
	}
}

// loadDataset reads the canonical dataset from the configured store, or from
// DATA_PATH when no store is configured.
func (a *app) loadDataset(ctx context.Context) ([]models.Listing, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
		return store.Load(ctx)
	}
	return storage.LoadDatasetJSON(a.cfg.DataPath)
}

// loadModel returns nil interfaces when estimates cannot be served, either
// because the model file is absent or because a scaled model has no scaler.
func (a *app) loadModel() (regression.Regressor, regression.Scaler, error) {
	model, scaler, err := regression.Load(a.cfg.ModelPath, a.cfg.ScalerPath, models.FeatureColumns)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Warn("[model] %s not found; estimates disabled", a.cfg.ModelPath)
		return nil, nil, nil
	case errors.Is(err, regression.ErrScalerRequired):
		a.logger.Warn("[model] %v; estimates disabled", err)
		return nil, nil, nil
	case err != nil:
		return nil, nil, err
	}
	if scaler == nil {
		a.logger.Warn("[model] %s not found; features go to the model unscaled", a.cfg.ScalerPath)
	}
	return model, scaler, nil
}

// openCatalog loads the dataset and model and builds the query context.
func (a *app) openCatalog(ctx context.Context) (*services.Catalog, error) {
	listings, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	model, scaler, err := a.loadModel()
	if err != nil {
		return nil, err
	}
	catalog, err := services.NewCatalog(a.logger, listings, services.CatalogOptions{
		Model:  model,
		Scaler: scaler,
		Valuation: services.ValuationOptions{
			Band:                 a.cfg.RangeBand,
			OverpricedThreshold:  a.cfg.OverpricedThreshold,
			UnderpricedThreshold: a.cfg.UnderpricedThreshold,
		},
		CompsN: a.cfg.CompsN,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("[catalog] %d listings loaded (model: %v)", catalog.Len(), catalog.HasModel())
	return catalog, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
