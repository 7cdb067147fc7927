// Spotify resource reference parsing
package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/plshuffle/internal/shared"
)

// ResourceType classifies a Spotify resource reference.
type ResourceType string

const (
	ResourceUnknown  ResourceType = ""
	ResourcePlaylist ResourceType = "playlist"
	ResourceTrack    ResourceType = "track"
	ResourceAlbum    ResourceType = "album"
	ResourceArtist   ResourceType = "artist"
	ResourceEpisode  ResourceType = "episode"
	ResourceShow     ResourceType = "show"
	ResourceUser     ResourceType = "user"
)

var (
	spotifyIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
	knownTypes       = map[string]ResourceType{
		"playlist": ResourcePlaylist,
		"track":    ResourceTrack,
		"album":    ResourceAlbum,
		"artist":   ResourceArtist,
		"episode":  ResourceEpisode,
		"show":     ResourceShow,
		"user":     ResourceUser,
	}
)

// Resource is a parsed Spotify reference.
type Resource struct {
	Type ResourceType
	ID   string
}

// URI formats the resource as spotify:<type>:<id>.
func (r Resource) URI() string {
	return fmt.Sprintf("spotify:%s:%s", r.Type, r.ID)
}

// ParseResource accepts spotify: URIs and open.spotify.com links.
//
// Legacy user-scoped playlist URIs (spotify:user:<name>:playlist:<id>) resolve to the playlist.
// A bare 22 character id is assumed to be a playlist.
func ParseResource(ref string) (Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resource{}, fmt.Errorf("%w: empty reference", shared.ErrInvalidReference)
	}

	if spotifyIDPattern.MatchString(ref) {
		return Resource{Type: ResourcePlaylist, ID: ref}, nil
	}

	var segments []string
	switch {
	case strings.HasPrefix(ref, "spotify:"):
		segments = strings.Split(strings.TrimPrefix(ref, "spotify:"), ":")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil {
			return Resource{}, fmt.Errorf("%w: %v", shared.ErrInvalidReference, err)
		}
		if u.Host != "open.spotify.com" && u.Host != "play.spotify.com" {
			return Resource{}, fmt.Errorf("%w: unexpected host %q", shared.ErrInvalidReference, u.Host)
		}
		for _, s := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if strings.HasPrefix(s, "intl-") || s == "embed" {
				continue
			}
			segments = append(segments, s)
		}
	default:
		return Resource{}, fmt.Errorf("%w: %q", shared.ErrInvalidReference, ref)
	}

	return resourceFromSegments(ref, segments)
}

// resourceFromSegments resolves type/id pairs, letting a later pair win so user-scoped playlists resolve to the playlist.
func resourceFromSegments(ref string, segments []string) (Resource, error) {
	var res Resource
	for i := 0; i+1 < len(segments); i += 2 {
		typ, ok := knownTypes[segments[i]]
		if !ok || segments[i+1] == "" {
			return Resource{}, fmt.Errorf("%w: %q", shared.ErrInvalidReference, ref)
		}
		res = Resource{Type: typ, ID: segments[i+1]}
	}

	if res.ID == "" || len(segments)%2 != 0 {
		return Resource{}, fmt.Errorf("%w: %q", shared.ErrInvalidReference, ref)
	}
	return res, nil
}

// ParsePlaylistRef returns the playlist id referenced by ref, rejecting any other resource type.
func ParsePlaylistRef(ref string) (string, error) {
	res, err := ParseResource(ref)
	if err != nil {
		return "", err
	}
	if res.Type != ResourcePlaylist {
		return "", fmt.Errorf("%w: %s is a %s", shared.ErrInvalidReference, ref, res.Type)
	}
	return res.ID, nil
}
