// Package services defines the [Service] interface for music streaming providers and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The HTTP client comes from [oauth2.NewClient], so expired access tokens are refreshed with the stored refresh token.
// New tokens are reported through [SpotifyService.SetTokenRefreshCallback] so the CLI can persist them.
//
// Playlist endpoints used by the shuffle workflow:
//   - GET /playlists/{id}?fields=name : [SpotifyService.PlaylistName]
//   - GET /playlists/{id}/tracks : [SpotifyService.PlaylistTracks], paged 100 at a time
//   - POST /me/playlists : [SpotifyService.CreatePlaylist]
//   - PUT /playlists/{id}/tracks : [SpotifyService.ReplaceTracks]
//   - POST /playlists/{id}/tracks : [SpotifyService.AppendTracks]
//   - DELETE /playlists/{id}/followers : [SpotifyService.UnfollowPlaylist]
//
// Write calls return the snapshot id exactly as received. Deciding whether a missing snapshot id is a failure belongs to the caller.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Service for OAuth providers.
// [SpotifyService] implements this for the local callback flow used by the CLI.
//
// # References
//
// [ParseResource] and [ParsePlaylistRef] accept spotify: URIs, open.spotify.com links and bare ids.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : 401 from the API, reauthorization needed
//   - [shared.ErrAPIRequest] : transport failure or non-2xx response
//   - [shared.ErrFetchFailed] : playlist contains items that cannot be written back
//   - [shared.ErrInvalidReference] : reference is not a playlist
package services
