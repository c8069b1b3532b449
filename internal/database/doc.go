// Package database provides the SQLite index store for the media index.
//
// It holds one metadata record per (repository id, file id), the tag
// vocabulary and the links between them:
//   - files: extracted metadata plus the random seed and the verified flag
//     used during build passes
//   - tags: globally unique, case-sensitive names
//   - tag_file: many-to-many links, removed together with either side
//   - metadata: key/value bookkeeping such as the last build time per
//     repository
//
// The database runs in WAL mode so iterators keep reading while a build
// pass writes. Writes are serialized inside the store; each record upsert
// is its own transaction.
package database
