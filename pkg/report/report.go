// Package report persists checker run outcomes as JSON files, one per use
// case category plus an overall summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/service"
)

// RunInfo identifies one checker run and the service it ran against.
type RunInfo struct {
	ID          string       `json:"id"`
	Tool        string       `json:"tool"`
	ToolVersion string       `json:"tool_version"`
	Host        string       `json:"host"`
	Username    string       `json:"username"`
	Relaxed     bool         `json:"relaxed"`
	Started     time.Time    `json:"started"`
	Finished    time.Time    `json:"finished"`
	Service     service.Info `json:"service"`
}

// NewRunID returns a fresh unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Summary is the top-level report document.
type Summary struct {
	Run        RunInfo          `json:"run"`
	Overall    result.Status    `json:"overall"`
	Counts     result.Counts    `json:"counts"`
	Categories []CategorySummary `json:"categories"`
}

// CategorySummary points at the per-category detail file.
type CategorySummary struct {
	Category string        `json:"category"`
	Overall  result.Status `json:"overall"`
	Counts   result.Counts `json:"counts"`
	File     string        `json:"file"`
}

// CategoryReport is the per-category detail document.
type CategoryReport struct {
	Run      RunInfo         `json:"run"`
	Category string          `json:"category"`
	Results  []result.Result `json:"results"`
}

// Write renders the result set under dir: one detail file per category in
// first-appearance order, then summary.json. The directory is created when
// missing.
func Write(dir string, info RunInfo, results *result.Set) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	summary := Summary{
		Run:     info,
		Overall: results.Overall(),
		Counts:  results.Counts(),
	}

	for _, category := range results.Categories() {
		records := results.ByCategory(category)
		counts := countResults(records)
		file := fileName(category)

		detail := CategoryReport{
			Run:      info,
			Category: category,
			Results:  records,
		}
		if err := writeJSON(filepath.Join(dir, file), detail); err != nil {
			return "", err
		}

		summary.Categories = append(summary.Categories, CategorySummary{
			Category: category,
			Overall:  overall(counts),
			Counts:   counts,
			File:     file,
		})
	}

	summaryPath := filepath.Join(dir, "summary.json")
	if err := writeJSON(summaryPath, summary); err != nil {
		return "", err
	}

	return summaryPath, nil
}

// fileName maps a category name to its detail file, e.g. "Power Control"
// to "power_control_results.json".
func fileName(category string) string {
	slug := strings.ToLower(category)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)

	return slug + "_results.json"
}

func countResults(records []result.Result) result.Counts {
	var c result.Counts
	for _, r := range records {
		switch r.Status {
		case result.StatusPass:
			c.Pass++
		case result.StatusWarn:
			c.Warn++
		case result.StatusFail:
			c.Fail++
		case result.StatusSkip:
			c.Skip++
		}
	}

	return c
}

func overall(c result.Counts) result.Status {
	switch {
	case c.Fail > 0:
		return result.StatusFail
	case c.Warn > 0:
		return result.StatusWarn
	default:
		return result.StatusPass
	}
}

func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}

	return nil
}
