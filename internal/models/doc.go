// Package models defines the entities passed between the Spotify client, the shuffle tasks and the UI.
//
//   - [TrackRef] : opaque track id, convertible to and from a spotify:track URI
//   - [Playlist] : remote playlist metadata; identity is the ID
//   - [Chunk] : bounded slice of a track sequence, the unit of one write call
//
// Track sequences are plain []TrackRef values. Order is playback order and duplicates are allowed.
package models
