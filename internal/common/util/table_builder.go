package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TableBuilder renders rows of cells as space padded columns, every row starting with the same prefix.
// Output goes to a strings.Builder, so none of the writer errors can happen.
type TableBuilder struct {
	prefix string
	sb     *strings.Builder
	writer *tabwriter.Writer
}

func NewTableBuilder(prefix string, padding int) *TableBuilder {
	sb := &strings.Builder{}
	return &TableBuilder{
		prefix: prefix,
		sb:     sb,
		writer: tabwriter.NewWriter(sb, 0, 0, padding, ' ', 0),
	}
}

func (t *TableBuilder) Row(cells ...string) {
	_, _ = fmt.Fprint(t.writer, t.prefix+strings.Join(cells, "\t")+"\n")
}

// String flushes pending rows and returns the table.
func (t *TableBuilder) String() string {
	_ = t.writer.Flush()
	return t.sb.String()
}
