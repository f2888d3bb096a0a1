package preflight

import (
	"fmt"
	"os"
	"strings"

	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/store"
)

// CheckDataDirLock reports whether another process holds the data
// directory lock. A held lock is a warning: 'sift serve' is probably
// running and offline commands will be refused.
func (c *Checker) CheckDataDirLock(root string) CheckResult {
	result := CheckResult{
		Name:     "data_dir_lock",
		Required: false,
	}

	lock := index.NewDataDirLock(root)
	ok, err := lock.TryLock()
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot take lock: %v", err)
		return result
	}
	if !ok {
		result.Status = StatusWarn
		result.Message = "held by another sift process"
		result.Details = lock.Path()
		return result
	}
	_ = lock.Unlock()

	result.Status = StatusPass
	result.Message = "free"
	return result
}

// CheckArtifacts counts the index artifacts of the configured backend and
// warns about artifacts another backend wrote, which are never loaded.
func (c *Checker) CheckArtifacts(dataDir string) CheckResult {
	result := CheckResult{
		Name:     "index_artifacts",
		Required: false,
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read data directory: %v", err)
		return result
	}

	others := otherBackends(c.backend)
	var own int
	var foreign []string
	for _, entry := range entries {
		if c.backend.IsArtifact(entry) {
			own++
			continue
		}
		for _, b := range others {
			if b.IsArtifact(entry) {
				foreign = append(foreign, entry.Name())
				break
			}
		}
	}

	if len(foreign) > 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d %s index(es), %d ignored from another backend", own, c.backend.Name(), len(foreign))
		result.Details = strings.Join(foreign, ", ")
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d %s index(es)", own, c.backend.Name())
	return result
}

func otherBackends(current store.Backend) []store.Backend {
	var others []store.Backend
	for _, name := range []store.BackendType{store.BackendSQLite, store.BackendBleve} {
		if string(name) == current.Name() {
			continue
		}
		if b, err := store.NewBackend(string(name), 0); err == nil {
			others = append(others, b)
		}
	}
	return others
}
