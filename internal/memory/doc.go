// Package memory keeps the indexer inside its container memory budget.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// when GOMEMLIMIT itself is not set. It should run first thing in main.
//
// A [Monitor] samples heap usage. Once usage reaches the critical water
// mark, [Monitor.Wait] blocks metadata extraction workers until usage
// falls below the high water mark again:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//	builder.SetThrottle(monitor)
package memory
