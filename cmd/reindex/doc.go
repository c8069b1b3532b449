// Command reindex runs a build pass over the media index outside of the
// server, or reports the state of the index.
//
// Usage:
//
//	reindex <command> [repository...]
//
// Commands:
//
//	update   Index new and changed files, and evict records of files that
//	         are gone. Unchanged files are not read again.
//
//	rebuild  Drop the records of each repository and index it from scratch.
//	         Every record gets a fresh random seed.
//
//	status   Print the record count and the last successful build of each
//	         repository.
//
// Without repository ids every enabled repository is processed.
//
// Environment:
//
// The same variables as the server apply, in particular INDEX_PATH,
// CACHE_DIR, CONFIG_FILE and MEDIA_DIR. See the startup package.
//
// Notes:
//
// SQLite allows a single writer. Running update or rebuild while the
// server indexes the same database makes one of them wait for the other.
package main
