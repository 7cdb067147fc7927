package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plshuffle/internal/server"
	"github.com/desertthunder/plshuffle/internal/services"
	"github.com/desertthunder/plshuffle/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// setup loads the config and connects to Spotify before any command runs.
func (r *Runner) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		}
	}

	if r.spotify == nil {
		if svc, err := r.connect(ctx); err != nil {
			r.logger.Debug("spotify service unavailable", "error", err)
		} else {
			r.spotify = svc
		}
	}
	return ctx, nil
}

// connect builds a Spotify service from the config, authenticating with the stored token when present.
//
// Refreshed tokens are written back to the config file.
func (r *Runner) connect(ctx context.Context) (*services.SpotifyService, error) {
	config := r.settings()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	credentials := config.Credentials.Spotify.Map()
	if credentials["redirect_uri"] == "" {
		credentials["redirect_uri"] = fmt.Sprintf("http://%s:%d/callback", config.Server.Host, config.Server.Port)
	}

	svc, err := services.NewSpotifyService(credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMissingCredentials, err)
	}
	svc.SetTimeout(config.Shuffle.Timeout())
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", r.configPath)
	})

	if config.Credentials.Spotify.HasToken() {
		if err := svc.OAuthenticate(ctx, config.Credentials.Spotify.Token()); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set Spotify client_id and client_secret in %s, then run plshuffle auth",
			shared.ErrServiceUnavailable, r.configPath)
	}
	return nil
}

// Init writes the example config to the --config path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlain("Add your Spotify client_id and client_secret, then run: plshuffle auth\n")
	return nil
}

// Auth performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and exchanges the code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.settings().Validate(); err != nil {
		return err
	}

	svc, ok := r.spotify.(services.OAuthService)
	if !ok {
		connected, err := r.connect(ctx)
		if err != nil {
			return err
		}
		svc = connected
		r.spotify = connected
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: plshuffle playlists\n")
	return nil
}

// doOAuth runs the authorization flow against a local callback server.
func (r *Runner) doOAuth(ctx context.Context, svc services.OAuthService, purpose string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	srv, err := server.NewCallbackServer(svc.GetOAuthConfig(), state, r.logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := srv.Shutdown(); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := svc.GetAuthURL(state)
	r.logger.Info("waiting for OAuth callback", "purpose", purpose, "addr", srv.Addr())

	r.writePlain("→ Opening browser for Spotify %s...\n", purpose)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	token, err := srv.Wait(ctx, authTimeout)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return token, nil
}

// reauthorize runs the OAuth flow again after the stored token was rejected.
//
// Returns false when err is not a token expiry and nothing was attempted.
func (r *Runner) reauthorize(ctx context.Context, err error) (bool, error) {
	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	svc, ok := r.spotify.(services.OAuthService)
	if !ok {
		return true, fmt.Errorf("%w: spotify service does not support reauthorization", shared.ErrNotAuthenticated)
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...")

	token, authErr := r.doOAuth(ctx, svc, "reauthorization")
	if authErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", authErr)
	}
	if err := r.saveTokens(token); err != nil {
		return true, err
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return true, fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlain("✓ Reauthorized. Retrying...\n\n")
	return true, nil
}

// Playlists lists the user's playlists with an optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	limit := cmd.Int("limit")
	r.logger.Debug("listing playlists", "limit", limit)

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		reauthed, authErr := r.reauthorize(ctx, err)
		if authErr != nil {
			return authErr
		}
		if reauthed {
			if playlists, err = r.spotify.GetPlaylists(ctx); err != nil {
				return err
			}
		}
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}
	return nil
}
