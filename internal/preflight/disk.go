package preflight

import (
	"fmt"
	"syscall"

	"github.com/Aman-CERP/sift/internal/ui"
)

const (
	// MinDiskSpaceBytes is the free space below which serve refuses to start.
	MinDiskSpaceBytes = 100 * 1024 * 1024

	// LowDiskSpaceBytes is the free space below which the check warns.
	LowDiskSpaceBytes = 1024 * 1024 * 1024
)

// CheckDiskSpace checks the free space on the filesystem holding the data
// directory. Index artifacts grow with every document and SQLite needs room
// for its WAL before a checkpoint.
func (c *Checker) CheckDiskSpace(dataDir string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(dataDir, &fs); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	free := int64(fs.Bavail) * int64(fs.Bsize)
	result.Message = fmt.Sprintf("%s free", ui.FormatBytes(free))
	switch {
	case free < MinDiskSpaceBytes:
		result.Status = StatusFail
		result.Details = fmt.Sprintf("at least %s is required", ui.FormatBytes(MinDiskSpaceBytes))
	case free < LowDiskSpaceBytes:
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("below %s; large batches may fail with ERR_502", ui.FormatBytes(LowDiskSpaceBytes))
	default:
		result.Status = StatusPass
	}
	return result
}
