package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Shuffle operation errors
	ErrFetchFailed       = fmt.Errorf("failed to fetch playlist")
	ErrCreateFailed      = fmt.Errorf("failed to create backup playlist")
	ErrWriteFailed       = fmt.Errorf("failed to write playlist tracks")
	ErrOperationInFlight = fmt.Errorf("a shuffle is already in progress")

	// Input validation errors
	ErrInvalidReference = fmt.Errorf("not a playlist reference")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
)
