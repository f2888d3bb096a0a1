package ui

import (
	"fmt"
	"io"
)

// ResultsRenderer displays search hits.
type ResultsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultsRenderer creates a results renderer.
func NewResultsRenderer(out io.Writer, noColor bool) *ResultsRenderer {
	return &ResultsRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints each hit with its fields in column order.
func (r *ResultsRenderer) Render(query string, hits []map[string]string, columns []string) {
	noun := "hits"
	if len(hits) == 1 {
		noun = "hit"
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Header.Render(fmt.Sprintf("%d %s", len(hits), noun)),
		r.styles.Dim.Render(fmt.Sprintf("for %q", query)))

	width := 0
	for _, c := range columns {
		width = max(width, len(c))
	}

	for i, hit := range hits {
		_, _ = fmt.Fprintf(r.out, "\n%s\n", r.styles.Match.Render(fmt.Sprintf("#%d", i+1)))
		for _, c := range columns {
			_, _ = fmt.Fprintf(r.out, "  %s %s\n",
				r.styles.Label.Render(fmt.Sprintf("%-*s", width, c)),
				r.styles.Value.Render(hit[c]))
		}
	}
}
