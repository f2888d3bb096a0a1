package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/store"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{
			name:     "required pass is not critical",
			result:   CheckResult{Status: StatusPass, Required: true},
			expected: false,
		},
		{
			name:     "required fail is critical",
			result:   CheckResult{Status: StatusFail, Required: true},
			expected: true,
		},
		{
			name:     "optional fail is not critical",
			result:   CheckResult{Status: StatusFail, Required: false},
			expected: false,
		},
		{
			name:     "required warn is not critical",
			result:   CheckResult{Status: StatusWarn, Required: true},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_New(t *testing.T) {
	// Given: default options
	checker := New()

	// Then: checker defaults to the SQLite backend
	assert.NotNil(t, checker)
	assert.Equal(t, "sqlite", checker.backend.Name())
	assert.False(t, checker.verbose)
}

func TestChecker_NewWithOptions(t *testing.T) {
	// Given: custom options
	buf := &bytes.Buffer{}
	checker := New(
		WithBackend(store.NewBleveBackend()),
		WithVerbose(true),
		WithOutput(buf),
	)

	// Then: options are applied
	assert.Equal(t, "bleve", checker.backend.Name())
	assert.True(t, checker.verbose)
	assert.True(t, checker.noColor)
	assert.Equal(t, buf, checker.output)
}

func TestChecker_HasCriticalFailures(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected bool
	}{
		{
			name:     "no results",
			results:  []CheckResult{},
			expected: false,
		},
		{
			name: "all pass",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusPass, Required: true},
			},
			expected: false,
		},
		{
			name: "warning only",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusWarn, Required: false},
			},
			expected: false,
		},
		{
			name: "optional failure",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusFail, Required: false},
			},
			expected: false,
		},
		{
			name: "required failure",
			results: []CheckResult{
				{Status: StatusPass, Required: true},
				{Status: StatusFail, Required: true},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckWritePermissions_Writable(t *testing.T) {
	// Given: a writable directory
	tmpDir := t.TempDir()

	// When: checking write permissions
	checker := New()
	result := checker.CheckWritePermissions(tmpDir)

	// Then: passes
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "write_permissions", result.Name)
	assert.True(t, result.Required)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	// Given: a read-only directory (skip on CI/root)
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	tmpDir := t.TempDir()
	readOnlyDir := filepath.Join(tmpDir, "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0555))
	defer func() { _ = os.Chmod(readOnlyDir, 0755) }() // Restore for cleanup

	// When: checking write permissions
	checker := New()
	result := checker.CheckWritePermissions(readOnlyDir)

	// Then: fails
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckWritePermissions_CreatesDirectory(t *testing.T) {
	// Given: a data directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "root", "data")

	// When: checking write permissions
	result := New().CheckWritePermissions(dir)

	// Then: the directory is created and the check passes
	assert.Equal(t, StatusPass, result.Status)
	assert.DirExists(t, dir)
}

func TestChecker_RunAll_ReturnsAllChecks(t *testing.T) {
	// Given: an empty root
	root := t.TempDir()
	checker := New()

	// When: running all checks
	results := checker.RunAll(context.Background(), root)

	// Then: every check ran against <root>/data
	checkNames := make(map[string]bool)
	for _, r := range results {
		checkNames[r.Name] = true
	}

	assert.True(t, checkNames["write_permissions"], "write_permissions check missing")
	assert.True(t, checkNames["disk_space"], "disk_space check missing")
	assert.True(t, checkNames["file_descriptors"], "file_descriptors check missing")
	assert.True(t, checkNames["data_dir_lock"], "data_dir_lock check missing")
	assert.True(t, checkNames["index_artifacts"], "index_artifacts check missing")
	assert.DirExists(t, index.DataDir(root))
}

func TestChecker_CheckDataDirLock(t *testing.T) {
	root := t.TempDir()
	checker := New()

	// Given: a free lock
	result := checker.CheckDataDirLock(root)
	assert.Equal(t, StatusPass, result.Status)

	// When: another holder takes it
	lock, err := index.AcquireDataDirLock(root)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	// Then: the check warns without failing
	result = checker.CheckDataDirLock(root)
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.IsCritical())
	assert.Equal(t, lock.Path(), result.Details)
}

func TestChecker_CheckArtifacts(t *testing.T) {
	// Given: two SQLite artifacts, a WAL side file and a bleve directory
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "books.db"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "films.db"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "films.db-wal"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "music.bleve"), 0o755))

	// When: checking with the SQLite backend
	result := New().CheckArtifacts(dataDir)

	// Then: the bleve directory is reported as ignored
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "2 sqlite")
	assert.Equal(t, "music.bleve", result.Details)

	// And: with the bleve backend the SQLite files are the foreign ones
	result = New(WithBackend(store.NewBleveBackend())).CheckArtifacts(dataDir)
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "1 bleve")
	assert.Equal(t, "books.db, films.db", result.Details)
}

func TestChecker_CheckArtifacts_Empty(t *testing.T) {
	result := New().CheckArtifacts(t.TempDir())

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "0 sqlite index(es)", result.Message)
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: some check results
	results := []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "50 GB free"},
		{Name: "data_dir_lock", Status: StatusWarn, Message: "held by another sift process"},
		{Name: "write_permissions", Status: StatusFail, Message: "permission denied", Required: true},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf))

	// When: printing results
	checker.PrintResults(results)

	// Then: output contains formatted results
	output := buf.String()
	assert.Contains(t, output, "[PASS]")
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "[FAIL]")
	assert.Contains(t, output, "disk_space")
	assert.Contains(t, output, "Status: FAILED")
	assert.Contains(t, output, "1 error(s)")
	assert.Contains(t, output, "1 warning(s)")
}

func TestCheckStatus_MarshalText(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "disk_space", Status: StatusWarn})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{
			name: "all pass",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusPass},
			},
			expected: "ready",
		},
		{
			name: "with warnings",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusWarn},
			},
			expected: "ready_with_warnings",
		},
		{
			name: "with critical failure",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusFail, Required: true},
			},
			expected: "failed",
		},
		{
			name: "with optional failure",
			results: []CheckResult{
				{Status: StatusPass},
				{Status: StatusFail, Required: false},
			},
			expected: "ready_with_warnings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
		})
	}
}

func TestChecker_CheckFileDescriptors(t *testing.T) {
	result := New().CheckFileDescriptors()

	assert.Equal(t, "file_descriptors", result.Name)
	assert.True(t, result.Required)
	assert.Contains(t, result.Message, "open files")
	if result.Status != StatusPass {
		assert.NotEmpty(t, result.Details)
	}
}

func TestChecker_CheckDiskSpace(t *testing.T) {
	result := New().CheckDiskSpace(t.TempDir())

	assert.Equal(t, "disk_space", result.Name)
	assert.True(t, result.Required)
	assert.Contains(t, result.Message, "free")
}

func TestChecker_CheckDiskSpace_MissingDir(t *testing.T) {
	result := New().CheckDiskSpace(filepath.Join(t.TempDir(), "absent"))

	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}
