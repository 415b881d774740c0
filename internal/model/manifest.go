package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Manifest columns required in the CSV header row.
var manifestColumns = []string{"name", "url", "description"}

// ReadManifest parses the report manifest CSV. The header row must contain
// the name, url and description columns (any order, case-insensitive);
// extra columns are ignored. Rows are returned in file order, including
// rows with an empty URL, which the pipeline reports as skipped rather
// than dropping silently.
func ReadManifest(path string) ([]ReportRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	return parseManifest(f, path)
}

func parseManifest(r io.Reader, path string) ([]ReportRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("manifest %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range manifestColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("manifest %s: missing required column %q", path, want)
		}
	}

	field := func(record []string, name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var reports []ReportRequest
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest row %d: %w", row+1, err)
		}
		row++
		reports = append(reports, ReportRequest{
			Name:                field(record, "name"),
			URL:                 field(record, "url"),
			ExistingDescription: field(record, "description"),
			Row:                 row,
		})
	}

	return reports, nil
}
