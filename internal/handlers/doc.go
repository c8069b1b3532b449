// Package handlers provides the HTTP handlers of the admin API.
//
// It includes handlers for:
//   - Health, liveness and readiness probes
//   - Index statistics, repository state and tag counts
//   - Triggering update and rebuild passes
//   - Stepping through playlists and exporting them as WPL
package handlers
