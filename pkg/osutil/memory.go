package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this page-aligned max int64 when no limit is set.
const unrestrictedV1Limit = 9223372036854771712

var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // v1
}

// GetTotalMemory returns the memory available to the process: the host's
// total, or the container's cgroup limit when one is set and is lower.
func GetTotalMemory() uint64 {
	return totalMemory(memory.TotalMemory(), cgroupLimitFiles)
}

func totalMemory(host uint64, limitFiles []string) uint64 {
	for _, path := range limitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		limit, ok := parseCgroupLimit(string(raw))
		if ok && limit < host {
			return limit
		}
		return host
	}
	return host
}

func parseCgroupLimit(raw string) (uint64, bool) {
	value := strings.TrimSpace(raw)
	if value == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil || limit == 0 || limit == unrestrictedV1Limit {
		return 0, false
	}
	return limit, true
}
