// Package export serializes result records to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/colligo/internal/services/collect"
)

// Write serializes records as UTF-8 CSV. The header row is the first
// record's field names in insertion order; every row is rendered against
// that same field order.
func Write(w io.Writer, records []*collect.Record) error {
	if len(records) == 0 {
		return nil
	}

	writer := csv.NewWriter(w)
	header := records[0].Keys()
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			row[i] = rec.Get(key)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Read parses CSV produced by Write back into records
func Read(r io.Reader) ([]*collect.Record, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]*collect.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := collect.NewRecord()
		for i, key := range header {
			if i < len(row) {
				rec.Set(key, row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save writes records to <dir>/<prefix>_<timestamp>.csv and returns the
// file path
func Save(dir, prefix string, records []*collect.Record) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, records); err != nil {
		return "", err
	}
	return path, nil
}
