// package services defines interface Service for interacting with the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/plshuffle/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the playlist operations the CLI, TUI and shuffle tasks need from a music provider.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistName reads a playlist's display name.
	PlaylistName(ctx context.Context, playlistID string) (string, error)

	// PlaylistTracks reads a playlist's full track order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRef, error)

	// CreatePlaylist creates an empty playlist owned by the current user and returns its id.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)

	// ReplaceTracks sets the playlist's entire track list and returns the new snapshot id.
	ReplaceTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error)

	// AppendTracks adds tracks to the end of the playlist and returns the new snapshot id.
	AppendTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error)

	// UnfollowPlaylist removes the playlist from the user's library.
	UnfollowPlaylist(ctx context.Context, playlistID string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Service] for providers using the OAuth2 authorization code flow.
type OAuthService interface {
	Service
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
