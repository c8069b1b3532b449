// Package indexer builds and maintains the metadata index of the media
// repositories.
//
// A Builder runs one pass over a repository adapter in one of two modes:
//   - Update: records are marked unverified, new and changed files are
//     extracted and upserted, unchanged ones are marked verified, and the
//     records left unverified are deleted at the end.
//   - Rebuild: every record of the repository and every unused tag is
//     deleted, then all files are extracted again.
//
// Metadata extraction runs on a bounded worker pool while all index writes
// stay on the goroutine calling Build. Failures of single files are logged
// and skipped; a failure to list the repository aborts the pass without
// deleting anything.
//
// A Scheduler runs passes in the background. Every queued repository is
// indexed once after Start, then again after a fixed interval or daily at
// a fixed time when configured. Passes can also be triggered on demand.
package indexer
