package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"realestate-comps/models"
)

// WriteDatasetJSON writes the canonical dataset as an indented JSON array.
// Intermediate directories are created automatically.
func WriteDatasetJSON(path string, listings []models.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("dataset json: create output dir: %w", err)
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("dataset json: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("dataset json: write %q: %w", path, err)
	}
	return nil
}

// LoadDatasetJSON reads a dataset written by WriteDatasetJSON. A missing file
// is ErrDataUnavailable.
func LoadDatasetJSON(path string) ([]models.Listing, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("dataset json %q: %w", path, err)
	}
	return listings, nil
}

// WriteRawJSON writes raw records as a JSON array that LoadRawJSON reads back.
func WriteRawJSON(path string, records []models.RawRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("raw json: create output dir: %w", err)
	}
	if records == nil {
		records = []models.RawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("raw json: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("raw json: write %q: %w", path, err)
	}
	return nil
}
