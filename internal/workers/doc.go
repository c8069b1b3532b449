/*
Package workers sizes worker pools in containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container CPU limit. Pool sizes are GOMAXPROCS times a [Profile]:

	workers.Count(workers.CPUBound, 8) // 1 per CPU
	workers.Count(workers.IOBound, 16) // 2 per CPU

INDEX_WORKERS overrides the computed value; the limit still applies. The
index builder sizes its extraction pool with IOBound. Database writes
always happen on a single goroutine regardless of the pool size.
*/
package workers
