/*
Package filesystem wraps os.Stat and os.ReadDir with retry logic for
NFS stale file handle errors (ESTALE).

Local repositories are often NFS or SMB mounts. A mount that is briefly
remounted or refreshed on the server side returns ESTALE for handles that
were valid a moment ago; retrying after a short backoff almost always
succeeds.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

Only ESTALE triggers a retry. Every other error is returned immediately.
The defaults are 3 retries with exponential backoff from 50ms capped at
500ms.

Every operation reports [Event] values to the [Observer] installed with
[SetObserver]; the metrics package provides the Prometheus implementation. Paths are
labelled by volume using a [VolumeResolver] (longest-prefix match), set once
at startup with [SetDefaultVolumeResolver].
*/
package filesystem
