// Package iterator compiles selection criteria into a fixed snapshot of
// the metadata index and walks it.
//
// Compile runs the query once; later changes of the index are not seen by
// an existing iterator. When Next returns ErrExhausted, callers compile a
// new iterator instead of wrapping around, which picks up newly indexed
// files.
//
// Supported orders:
//   - none: insertion order
//   - name: case-insensitive file name
//   - date: creation date
//   - random: one shuffle at compile time
//   - smart: a run of files by creation date, starting at a random anchor
//     and ending at the first gap larger than SmartTime hours
package iterator
