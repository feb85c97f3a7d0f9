package main

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-research/internal/model"
)

// locatorHeaders are the column names recognised as the website column.
var locatorHeaders = map[string]bool{
	"url":      true,
	"website":  true,
	"domain":   true,
	"locator":  true,
	"homepage": true,
}

// loadTargets merges --url values with the rows of an optional CSV file.
// Blank entries are dropped; duplicates are left for the pipeline to collapse.
func loadTargets(urls []string, csvPath string) ([]model.Target, error) {
	var targets []model.Target
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			targets = append(targets, model.Target{Locator: u})
		}
	}

	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, eris.Wrapf(err, "open targets file %s", csvPath)
		}
		defer f.Close() //nolint:errcheck

		fromFile, err := parseTargetsCSV(f)
		if err != nil {
			return nil, eris.Wrapf(err, "parse targets file %s", csvPath)
		}
		targets = append(targets, fromFile...)
	}

	if len(targets) == 0 {
		return nil, eris.New("no targets: pass --url or --file")
	}
	return targets, nil
}

// parseTargetsCSV reads one target per row. A header row naming a website
// column selects that column; otherwise the first column is used.
func parseTargetsCSV(r io.Reader) ([]model.Target, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	col := 0
	var targets []model.Target
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "row %d", row+1)
		}

		if row == 0 {
			if idx, ok := headerColumn(record); ok {
				col = idx
				continue
			}
		}
		if col >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[col]); v != "" {
			targets = append(targets, model.Target{Locator: v})
		}
	}
	return targets, nil
}

func headerColumn(record []string) (int, bool) {
	for i, h := range record {
		if locatorHeaders[strings.ToLower(strings.TrimSpace(h))] {
			return i, true
		}
	}
	return 0, false
}

// loadSender reads the sender profile used for email generation.
func loadSender(path string) (*model.SenderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read sender config %s", path)
	}

	var sc model.SenderConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrapf(err, "parse sender config %s", path)
	}
	if strings.TrimSpace(sc.Company) == "" {
		return nil, eris.Errorf("sender config %s: sender_company is required", path)
	}

	sc = sc.WithDefaults()
	return &sc, nil
}
