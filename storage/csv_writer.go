package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"realestate-comps/models"
)

var datasetHeader = []string{
	"id", "price", "sqm", "price_per_sqm", "beds", "baths", "floor",
	"latitude", "longitude", "furnishing_status", "furnished",
	"neighborhood", "neighborhood_cluster", "dist_to_nearest_center", "distance_from_center",
	"total_rooms", "has_elevator", "has_parking_space", "has_garden",
	"property_type", "city", "address", "is_outlier", "description",
}

// CSVWriter writes the cleaned dataset to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, w, err := createCSV(path, datasetHeader)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends listings as rows. Unknown optional values are empty cells.
func (c *CSVWriter) Write(listings []models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.ID,
			formatFloat(l.Price),
			formatFloat(l.Sqm),
			formatFloat(l.PricePerSqm),
			strconv.Itoa(l.Beds),
			formatFloat(l.Baths),
			formatOptional(l.Floor),
			formatOptional(l.Latitude),
			formatOptional(l.Longitude),
			l.FurnishingStatus,
			strconv.FormatBool(l.Furnished),
			l.Neighborhood,
			strconv.Itoa(l.ClusterID),
			formatOptional(l.DistToNearestCenter),
			formatOptional(l.DistanceFromCenter),
			formatOptional(l.TotalRooms),
			strconv.FormatBool(l.HasElevator),
			strconv.FormatBool(l.HasParkingSpace),
			strconv.FormatBool(l.HasGarden),
			l.PropertyType,
			l.City,
			l.Address,
			strconv.FormatBool(l.IsOutlier),
			l.Description,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// WriteAuditCSV writes the audit trail with one row per stage invocation.
func WriteAuditCSV(path string, entries []models.AuditEntry) error {
	f, w, err := createCSV(path, []string{"timestamp", "stage", "affected"})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Timestamp.Format(time.RFC3339), e.Stage, strconv.Itoa(e.Affected)}); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: write audit row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: flush audit: %w", err)
	}
	return f.Close()
}

func createCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	return f, w, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
