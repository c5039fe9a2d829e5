// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package export writes the intermediate CSV snapshot of the latest
// generated batch. Every write replaces the file in full.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/poiesic/datagen/core"
)

// Header is the first row of every export.
var Header = []string{"Product Name", "Review", "Sentiment"}

// ErrBadHeader indicates the export file does not start with Header.
var ErrBadHeader = errors.New("export: unexpected header")

// CSVExporter owns a single CSV file on disk.
// It is not safe for concurrent writers; callers serialize access.
type CSVExporter struct {
	path   string
	logger *slog.Logger
}

// NewCSVExporter returns an exporter for path. Nothing is touched on disk until Write.
func NewCSVExporter(path string) *CSVExporter {
	return &CSVExporter{
		path:   path,
		logger: slog.Default().With("component", "csv-export"),
	}
}

// Path returns the file the exporter writes.
func (e *CSVExporter) Path() string {
	return e.path
}

// Write replaces the export with records. The new file is written to a
// temporary sibling and renamed into place so readers never see a partial file.
func (e *CSVExporter) Write(records []core.Record) error {
	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.path)+"-*")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, Header)
	for _, r := range records {
		rows = append(rows, []string{r.ProductName, r.ReviewText, string(r.Sentiment)})
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("export: write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("export: replace %s: %w", e.path, err)
	}

	e.logger.Debug("export written", "path", e.path, "rows", len(records))
	return nil
}

// Read loads every row of the current export.
func (e *CSVExporter) Read() ([]core.Record, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("export: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: read: %w", err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], Header) {
		return nil, ErrBadHeader
	}

	records := make([]core.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		sentiment, err := core.ParseSentiment(row[2])
		if err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+1, err)
		}
		records = append(records, core.Record{
			ProductName: row[0],
			ReviewText:  row[1],
			Sentiment:   sentiment,
		})
	}
	return records, nil
}
