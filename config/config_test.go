package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"OUTLIER_K", "RANGE_BAND", "N_COMPS", "OUTLIER_POLICY", "STORE_DRIVER"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.OutlierK != 2.5 {
		t.Errorf("OutlierK = %v; want 2.5", cfg.OutlierK)
	}
	if cfg.RangeBand != 0.08 {
		t.Errorf("RangeBand = %v; want 0.08", cfg.RangeBand)
	}
	if cfg.CompsN != 5 {
		t.Errorf("CompsN = %d; want 5", cfg.CompsN)
	}
	if cfg.OutlierPolicy != "delete" {
		t.Errorf("OutlierPolicy = %q; want delete", cfg.OutlierPolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v; want nil", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OUTLIER_K", "1.5")
	t.Setenv("OUTLIER_POLICY", "CAP")
	t.Setenv("N_COMPS", "8")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg := Load()
	if cfg.OutlierK != 1.5 {
		t.Errorf("OutlierK = %v; want 1.5", cfg.OutlierK)
	}
	if cfg.OutlierPolicy != "cap" {
		t.Errorf("OutlierPolicy = %q; want cap", cfg.OutlierPolicy)
	}
	if cfg.CompsN != 8 {
		t.Errorf("CompsN = %d; want 8", cfg.CompsN)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q; want sqlite", cfg.StoreDriver)
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	t.Setenv("OUTLIER_POLICY", "ignore")
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil; want error for unknown outlier policy")
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}

func TestZonesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.yaml")
	in := &ZonesFile{ZoneNames: []string{"Core", "Ring"}, Gazetteer: []string{"Blloku"}}
	if err := SaveZones(path, in); err != nil {
		t.Fatalf("SaveZones: %v", err)
	}
	out, err := LoadZones(path)
	if err != nil {
		t.Fatalf("LoadZones: %v", err)
	}
	if strings.Join(out.ZoneNames, ",") != "Core,Ring" || len(out.Gazetteer) != 1 {
		t.Errorf("LoadZones = %+v; want %+v", out, in)
	}
}

func TestLoadZonesEmptyPath(t *testing.T) {
	z, err := LoadZones("")
	if err != nil || z == nil || len(z.ZoneNames) != 0 {
		t.Errorf("LoadZones(\"\") = %+v, %v; want empty file, nil", z, err)
	}
}
