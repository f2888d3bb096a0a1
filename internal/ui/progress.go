package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// BatchSummary describes a finished bulk index run.
type BatchSummary struct {
	Index    string
	Indexed  int
	Failed   int
	Duration time.Duration
}

// BatchReporter prints per-document progress for bulk indexing.
type BatchReporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	total  int
}

// NewBatchReporter creates a reporter for total documents.
func NewBatchReporter(out io.Writer, noColor bool, total int) *BatchReporter {
	return &BatchReporter{out: out, styles: GetStyles(noColor), total: total}
}

// Indexed reports the n-th (1-based) document and the server message for it.
func (r *BatchReporter) Indexed(n int, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render(fmt.Sprintf("[%d/%d]", n, r.total)), msg)
}

// Failed reports a document that could not be indexed.
func (r *BatchReporter) Failed(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Label.Render(fmt.Sprintf("[%d/%d]", n, r.total)),
		r.styles.Error.Render(fmt.Sprintf("ERROR: %v", err)))
}

// Complete prints the run summary.
func (r *BatchReporter) Complete(s BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("Indexed %d documents into %s in %s", s.Indexed, s.Index, s.Duration.Round(time.Millisecond))
	if s.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render(line),
			r.styles.Error.Render(fmt.Sprintf("(%d failed)", s.Failed)))
		return
	}
	_, _ = fmt.Fprintln(r.out, r.styles.Success.Render(line))
}
