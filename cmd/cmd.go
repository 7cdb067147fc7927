// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// initCommand writes an example config file.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write an example config.toml to the --config path",
		Action: r.Init,
	}
}

// authCommand runs the Spotify OAuth2 flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize plshuffle with Spotify using OAuth2",
		Action: r.Auth,
	}
}

// playlistsCommand lists the user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// shuffleCommand backs up and shuffles one playlist.
func shuffleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "shuffle",
		Usage:     "Back up a playlist, then shuffle it in place",
		ArgsUsage: "<playlist uri, link or id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Shuffle,
	}
}

// backupCommand manages backup playlists.
func backupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage backup playlists",
		Commands: []*cli.Command{
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a backup playlist from your library",
				ArgsUsage: "<backup playlist id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.BackupRemove,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse playlists and shuffle them interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File to write logs to while the TUI is running",
				Value: "./tmp/plshuffle-tui.log",
			},
		},
		Action: r.TUI,
	}
}
