package preflight

import (
	"fmt"
	"syscall"
)

// Every loaded index keeps its artifact open (plus WAL and SHM files for
// SQLite, several segment files for bleve), and each HTTP connection takes
// one more descriptor.
const (
	// MinFileDescriptors is the soft limit below which serve refuses to start.
	MinFileDescriptors = 1024

	// RecommendedFileDescriptors is the soft limit for data dirs with many indexes.
	RecommendedFileDescriptors = 4096
)

// CheckFileDescriptors checks the process's open file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: true}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to read file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d open files (hard limit %d)", limit.Cur, limit.Max)
	switch {
	case limit.Cur < MinFileDescriptors:
		result.Status = StatusFail
		result.Details = fmt.Sprintf("run 'ulimit -n %d' before 'sift serve'", RecommendedFileDescriptors)
	case limit.Cur < RecommendedFileDescriptors:
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("enough for a few hundred indexes; %d is recommended", RecommendedFileDescriptors)
	default:
		result.Status = StatusPass
	}
	return result
}
