package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"realestate-comps/models"
)

// LoadRaw reads raw records from a .json or .csv file.
func LoadRaw(path string) ([]models.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadRawCSV(path)
	default:
		return LoadRawJSON(path)
	}
}

// LoadRawJSON reads either a list of records or a column-oriented object
// ({"column": {"0": v, "1": v}} or {"column": [v, v]}). Numbers are kept as
// json.Number so the normalizer decides how to parse them.
func LoadRawJSON(path string) ([]models.RawRecord, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("raw json %q: empty file: %w", path, models.ErrDataUnavailable)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var records []models.RawRecord
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("raw json %q: decode records: %w", path, err)
		}
		return records, nil
	}

	var columns map[string]json.RawMessage
	if err := dec.Decode(&columns); err != nil {
		return nil, fmt.Errorf("raw json %q: decode columns: %w", path, err)
	}
	return fromColumns(columns)
}

func fromColumns(columns map[string]json.RawMessage) ([]models.RawRecord, error) {
	byRow := make(map[int]models.RawRecord)
	for name, raw := range columns {
		values, err := columnValues(raw)
		if err != nil {
			return nil, fmt.Errorf("raw json: column %q: %w", name, err)
		}
		for row, v := range values {
			rec, ok := byRow[row]
			if !ok {
				rec = models.RawRecord{}
				byRow[row] = rec
			}
			rec[name] = v
		}
	}

	rows := make([]int, 0, len(byRow))
	for row := range byRow {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	records := make([]models.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = byRow[row]
	}
	return records, nil
}

func columnValues(raw json.RawMessage) (map[int]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []any
		if err := dec.Decode(&list); err != nil {
			return nil, err
		}
		out := make(map[int]any, len(list))
		for i, v := range list {
			out[i] = v
		}
		return out, nil
	}

	var indexed map[string]any
	if err := dec.Decode(&indexed); err != nil {
		return nil, err
	}
	out := make(map[int]any, len(indexed))
	for k, v := range indexed {
		row, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("row index %q is not an integer", k)
		}
		out[row] = v
	}
	return out, nil
}

// LoadRawCSV reads a CSV file with a header row. Every value stays a string;
// empty cells become nil.
func LoadRawCSV(path string) ([]models.RawRecord, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("raw csv %q: no header row: %w", path, models.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("raw csv %q: read header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []models.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("raw csv %q: line %d: %w", path, len(records)+2, err)
		}
		rec := make(models.RawRecord, len(header))
		for i, name := range header {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				rec[name] = nil
				continue
			}
			rec[name] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %q: %w", path, models.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}
