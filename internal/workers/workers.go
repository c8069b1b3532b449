package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride is the environment variable that pins the worker count.
const EnvOverride = "INDEX_WORKERS"

// Profile is the number of workers per available CPU.
type Profile float64

const (
	CPUBound Profile = 1.0
	Mixed    Profile = 1.5
	// IOBound suits extraction that waits on downloads from remote
	// repositories.
	IOBound Profile = 2.0
)

// Count sizes a pool for p from GOMAXPROCS, which follows container CPU
// limits. A positive INDEX_WORKERS replaces the computed size. The result
// is at least 1 and at most limit when limit is positive.
func Count(p Profile, limit int) int {
	n := int(float64(runtime.GOMAXPROCS(0)) * float64(p))
	if override, err := strconv.Atoi(os.Getenv(EnvOverride)); err == nil && override > 0 {
		n = override
	}
	n = max(n, 1)
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}
