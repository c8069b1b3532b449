// Package logging provides a simple leveled logging interface for the
// media index.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true). When LOG_DIR is set, output is additionally written to a
// size-rotated file.
package logging
