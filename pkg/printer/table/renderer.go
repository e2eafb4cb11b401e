// Package table renders tabular console output.
package table

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ColumnFormatter transforms a value for display in one column.
type ColumnFormatter func(value any) any

// Renderer builds and renders a table with optional per-column formatting.
type Renderer struct {
	writer       io.Writer
	headers      []string
	formatters   map[string]ColumnFormatter
	table        *tablewriter.Table
	tableOptions []tablewriter.Option
}

// NewRenderer creates a renderer with the given options applied.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		writer:     os.Stdout,
		formatters: make(map[string]ColumnFormatter),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.table = tablewriter.NewTable(r.writer)

	if len(r.tableOptions) == 0 {
		r.table = r.table.Options(tablewriter.WithRendition(
			tw.Rendition{
				Settings: tw.Settings{
					Separators: tw.Separators{
						BetweenColumns: tw.Off,
					},
				},
			}),
		)
	} else {
		r.table = r.table.Options(r.tableOptions...)
	}

	if len(r.headers) > 0 {
		r.table.Header(r.headers)
	}

	return r
}

// Append adds one row. The row must have one value per header.
func (r *Renderer) Append(values []any) error {
	if len(values) != len(r.headers) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(r.headers))
	}

	row := make([]any, 0, len(values))

	for i := range r.headers {
		v := values[i]
		h := strings.ToUpper(r.headers[i])

		if formatter, exists := r.formatters[h]; exists {
			v = formatter(v)
		}

		row = append(row, v)
	}

	return r.table.Append(row)
}

// AppendAll adds multiple rows.
func (r *Renderer) AppendAll(rows [][]any) error {
	for _, values := range rows {
		if err := r.Append(values); err != nil {
			return err
		}
	}

	return nil
}

// Render writes the table to the configured writer.
func (r *Renderer) Render() error {
	return r.table.Render()
}
