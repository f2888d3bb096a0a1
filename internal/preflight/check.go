package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/store"
	"github.com/Aman-CERP/sift/internal/ui"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	backend store.Backend
	verbose bool
	noColor bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithBackend sets the backend the data directory is expected to hold.
func WithBackend(b store.Backend) Option {
	return func(c *Checker) {
		c.backend = b
	}
}

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
		c.noColor = ui.NoColorFor(w)
	}
}

// New creates a new Checker with the given options. The backend defaults
// to SQLite.
func New(opts ...Option) *Checker {
	c := &Checker{
		backend: store.NewSQLiteBackend(0),
		output:  os.Stdout,
		noColor: ui.NoColorFor(os.Stdout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against the data directory under root, creating
// it if needed.
func (c *Checker) RunAll(_ context.Context, root string) []CheckResult {
	dataDir := index.DataDir(root)

	var results []CheckResult

	results = append(results, c.CheckWritePermissions(dataDir))
	if results[0].Status == StatusFail {
		// Nothing else can be measured without the directory.
		return results
	}

	results = append(results, c.CheckDiskSpace(dataDir))
	results = append(results, c.CheckFileDescriptors())
	results = append(results, c.CheckDataDirLock(root))
	results = append(results, c.CheckArtifacts(dataDir))

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	styles := ui.GetStyles(c.noColor)

	_, _ = fmt.Fprintln(c.output, styles.Header.Render("sift system check"))
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "%s %s: %s\n", c.statusLabel(styles, r.Status), r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", styles.Dim.Render(r.Details))
		}
	}

	_, _ = fmt.Fprintln(c.output)
	status := c.SummaryStatus(results)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(status))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

func (c *Checker) statusLabel(styles ui.Styles, status CheckStatus) string {
	label := "[" + status.String() + "]"
	switch status {
	case StatusPass:
		return styles.Success.Render(label)
	case StatusWarn:
		return styles.Warning.Render(label)
	default:
		return styles.Error.Render(label)
	}
}

// CheckWritePermissions creates dir if needed and checks a file can be
// written in it.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create data directory: %v", err)
		return result
	}

	testFile := filepath.Join(dir, ".sift-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}
