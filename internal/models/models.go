// package models defines the data model shared by the shuffle engine, services and UI
package models

import (
	"fmt"
	"strings"
)

// MaxChunkSize is the largest number of tracks a single playlist write call accepts.
const MaxChunkSize = 100

// TrackRef is an opaque track identifier, the final segment of a spotify:track:<id> URI.
type TrackRef string

// URI returns the full track URI expected by playlist write endpoints.
func (t TrackRef) URI() string {
	return "spotify:track:" + string(t)
}

// ParseTrackURI extracts the [TrackRef] from a spotify:track:<id> URI.
func ParseTrackURI(uri string) (TrackRef, error) {
	parts := strings.Split(uri, ":")
	if len(parts) != 3 || parts[0] != "spotify" || parts[1] != "track" || parts[2] == "" {
		return "", fmt.Errorf("not a track uri: %q", uri)
	}
	return TrackRef(parts[2]), nil
}

// TrackURIs maps refs to track URIs, preserving order.
func TrackURIs(refs []TrackRef) []string {
	uris := make([]string, len(refs))
	for i, ref := range refs {
		uris[i] = ref.URI()
	}
	return uris
}

// Playlist represents a remote playlist. Identity is ID; Name is mutable metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	Owner       string `json:"owner,omitempty"`
}

// Chunk is a contiguous slice of a track sequence sent in one write call.
type Chunk struct {
	Index  int        // Position of the chunk within the sequence
	Offset int        // Offset of the first track within the sequence
	Tracks []TrackRef // Tracks in this chunk
}

// Chunks partitions refs into contiguous chunks of at most size entries.
//
// Only the last chunk may be shorter than size. An empty sequence yields no chunks.
func Chunks(refs []TrackRef, size int) []Chunk {
	if size <= 0 || size > MaxChunkSize {
		size = MaxChunkSize
	}

	chunks := make([]Chunk, 0, (len(refs)+size-1)/size)
	for i, offset := 0, 0; offset < len(refs); i, offset = i+1, offset+size {
		end := min(offset+size, len(refs))
		chunks = append(chunks, Chunk{Index: i, Offset: offset, Tracks: refs[offset:end]})
	}
	return chunks
}
