package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// IndexInfo is the display form of one index.
type IndexInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Backend   string    `json:"backend"`
	Version   string    `json:"version"`
	Created   time.Time `json:"created"`
	Schema    []string  `json:"schema"`
	Documents int       `json:"documents"`
	SizeBytes int64     `json:"size_bytes"`
}

// StatusRenderer displays index descriptions and listings.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// RenderIndex displays a single index.
func (r *StatusRenderer) RenderIndex(info IndexInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index: "+info.Name))

	r.field("Backend", info.Backend)
	r.field("Path", info.Path)
	r.field("Documents", fmt.Sprintf("%d", info.Documents))
	r.field("Size", FormatBytes(info.SizeBytes))
	if !info.Created.IsZero() {
		r.field("Created", fmt.Sprintf("%s (%s)", info.Created.Format(time.RFC3339), formatTime(info.Created)))
	}
	r.field("Version", info.Version)

	if len(info.Schema) == 0 {
		r.field("Schema", r.styles.Warning.Render("not yet inferred"))
	} else {
		r.field("Schema", strings.Join(info.Schema, ", "))
	}
	return nil
}

// RenderList displays one line per index.
func (r *StatusRenderer) RenderList(infos []IndexInfo) error {
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render("No indexes."))
		return nil
	}

	width := 0
	for _, info := range infos {
		width = max(width, len(info.Name))
	}

	_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render(fmt.Sprintf("%d indexes", len(infos))))
	for _, info := range infos {
		_, _ = fmt.Fprintf(r.out, "  %s  %s  %s\n",
			r.styles.Value.Render(fmt.Sprintf("%-*s", width, info.Name)),
			r.styles.Label.Render(fmt.Sprintf("%6d docs", info.Documents)),
			r.styles.Dim.Render(strings.Join(info.Schema, ",")))
	}
	return nil
}

// RenderJSON outputs v as indented JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *StatusRenderer) field(label, value string) {
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render(fmt.Sprintf("%-10s", label+":")), value)
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
