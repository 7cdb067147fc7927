package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/plshuffle/internal/shared"
	"github.com/desertthunder/plshuffle/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Shuffle backs up the playlist named by the argument and shuffles it in place.
//
// A token rejected while fetching triggers reauthorization and one retry. Later failures are not retried:
// a backup may already exist and the original may be partially written.
func (r *Runner) Shuffle(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("playlist")
	if ref == "" {
		ref = cmd.Args().First()
	}
	if ref == "" {
		return fmt.Errorf("%w: playlist uri, link or id", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	useJSON := cmd.Bool("json")

	result, err := r.runShuffle(ctx, ref, useJSON)
	if err != nil && result != nil && result.FailedStep == tasks.Fetching {
		reauthed, authErr := r.reauthorize(ctx, err)
		if reauthed {
			if authErr != nil {
				return authErr
			}
			result, err = r.runShuffle(ctx, ref, useJSON)
		}
	}

	if useJSON && result != nil {
		if jsonErr := r.writeJSON(result, cmd.Bool("pretty")); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	if err != nil {
		if result != nil && result.BackupID != "" {
			r.writePlainln("⚠ The original order is saved in %q (ID: %s)", result.BackupName, result.BackupID)
			r.writePlain("  Remove it later with: plshuffle backup remove %s\n", result.BackupID)
		}
		return err
	}

	r.writePlainln("✓ Shuffled %d tracks in %s", result.TrackCount, result.PlaylistName)
	r.writePlain("  Backup: %s (ID: %s)\n", result.BackupName, result.BackupID)
	return nil
}

// runShuffle runs one shuffle, printing notifications and progress unless quiet.
func (r *Runner) runShuffle(ctx context.Context, ref string, quiet bool) (*tasks.ShuffleResult, error) {
	var mu sync.Mutex
	emit := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		r.writePlain(format, args...)
	}

	notifier := tasks.NotifierFunc(func(msg string) {
		if quiet {
			r.logger.Info(msg)
			return
		}
		emit("→ %s\n", msg)
	})
	shuffler := r.newShuffler(notifier)

	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if quiet || update.State == tasks.Done || update.State == tasks.Aborted {
				continue
			}
			emit("  %s\n", update.Message)
		}
	}()

	result, err := shuffler.Run(ctx, ref, progress)
	close(progress)
	wg.Wait()
	return result, err
}

// BackupRemove removes a backup playlist created by an earlier shuffle.
func (r *Runner) BackupRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		id = cmd.Args().First()
	}
	if id == "" {
		return fmt.Errorf("%w: backup playlist id", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	shuffler := r.newShuffler(nil)
	err := shuffler.RemoveBackup(ctx, id)
	if err != nil && errors.Is(err, shared.ErrTokenExpired) {
		if _, authErr := r.reauthorize(ctx, err); authErr != nil {
			return authErr
		}
		err = shuffler.RemoveBackup(ctx, id)
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ Removed backup %s\n", id)
	return nil
}
