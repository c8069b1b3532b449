// Package playlist provides named selections over the media index.
//
// A Playlist holds an iterator compiled from its criteria. Next walks the
// snapshot and, once it is exhausted, compiles the criteria again so that
// files indexed since then are picked up. Previous steps back within the
// current snapshot.
//
// Playlists can be exported as WPL (Windows Playlist) documents, the
// XML-based format used by Windows Media Player.
package playlist
