// Package printer renders checker run outcomes to the console.
package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/printer/table"
	"github.com/redfish-tools/usecase-checkers/pkg/util/iostreams"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

type Options struct {
	OutputFormat string
	IOStreams    iostreams.Interface
	NoColor      bool
}

type Printer interface {
	PrintResults(results *result.Set) error
}

func NewPrinter(opts Options) Printer {
	switch opts.OutputFormat {
	case FormatJSON:
		return &JSONPrinter{out: opts.IOStreams.Out()}
	default:
		return &TablePrinter{out: opts.IOStreams.Out(), noColor: opts.NoColor}
	}
}

type TablePrinter struct {
	out     io.Writer
	noColor bool
}

func (p *TablePrinter) PrintResults(results *result.Set) error {
	renderer := table.NewRenderer(
		table.WithWriter(p.out),
		table.WithHeaders("CATEGORY", "TEST", "STATUS", "MESSAGE"),
		table.WithFormatter("STATUS", p.colorStatus),
	)

	for _, r := range results.Results() {
		if err := renderer.Append([]any{r.Category, r.Test, r.Status, r.Message}); err != nil {
			return err
		}
	}

	if err := renderer.Render(); err != nil {
		return err
	}

	c := results.Counts()
	_, err := fmt.Fprintf(p.out, "\n%s (pass: %d, warn: %d, fail: %d, skip: %d)\n",
		p.colorStatus(results.Overall()), c.Pass, c.Warn, c.Fail, c.Skip)

	return err
}

func (p *TablePrinter) colorStatus(value any) any {
	if p.noColor {
		return value
	}

	status, ok := value.(result.Status)
	if !ok {
		return value
	}

	switch status {
	case result.StatusPass:
		return color.GreenString(string(status))
	case result.StatusWarn:
		return color.YellowString(string(status))
	case result.StatusFail:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

type JSONPrinter struct {
	out io.Writer
}

func (p *JSONPrinter) PrintResults(results *result.Set) error {
	doc := struct {
		Overall result.Status   `json:"overall"`
		Counts  result.Counts   `json:"counts"`
		Results []result.Result `json:"results"`
	}{
		Overall: results.Overall(),
		Counts:  results.Counts(),
		Results: results.Results(),
	}

	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(doc)
}
