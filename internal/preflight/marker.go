package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/sift/pkg/version"
)

// MarkerFile records, inside the data directory, when checks last passed
// and which sift version ran them. 'sift serve' reruns the checks when it
// is missing or was written by another version.
const MarkerFile = ".sift-preflight"

// marker is the parsed content of MarkerFile: "<RFC3339 time>\n<version>\n".
type marker struct {
	passed  time.Time
	version string
}

func readMarker(dataDir string) (marker, bool) {
	content, err := os.ReadFile(filepath.Join(dataDir, MarkerFile))
	if err != nil {
		return marker{}, false
	}
	lines := strings.SplitN(strings.TrimSpace(string(content)), "\n", 2)
	passed, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[0]))
	if err != nil {
		return marker{}, false
	}
	m := marker{passed: passed}
	if len(lines) == 2 {
		m.version = strings.TrimSpace(lines[1])
	}
	return m, true
}

// NeedsCheck reports whether dataDir lacks a readable marker from this
// sift version.
func NeedsCheck(dataDir string) bool {
	m, ok := readMarker(dataDir)
	return !ok || m.version != version.Version
}

// MarkPassed writes the marker, creating dataDir if needed.
func MarkPassed(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	content := time.Now().Format(time.RFC3339) + "\n" + version.Version + "\n"
	return os.WriteFile(filepath.Join(dataDir, MarkerFile), []byte(content), 0o644)
}

// ClearMarker removes the marker so the next serve checks again.
func ClearMarker(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, MarkerFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker file: %w", err)
	}
	return nil
}

// MarkerAge returns how long ago the checks passed, or zero without a marker.
func MarkerAge(dataDir string) time.Duration {
	m, ok := readMarker(dataDir)
	if !ok {
		return 0
	}
	return time.Since(m.passed)
}
