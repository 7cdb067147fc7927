package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plshuffle/internal/models"
	"github.com/desertthunder/plshuffle/internal/shared"
)

// backupTimeLayout renders the local timestamp in a backup playlist's name.
const backupTimeLayout = "1/2/2006, 3:04:05 PM"

// BackupName composes "<source> (Backup <local timestamp>)".
func BackupName(source string, at time.Time) string {
	return fmt.Sprintf("%s (Backup %s)", source, at.Local().Format(backupTimeLayout))
}

// BackupPlaylist is a playlist created by [Backup.Create] along with the playlist it copies.
type BackupPlaylist struct {
	models.Playlist
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
}

// Backup copies a playlist's track order into a new playlist before the original is modified.
//
// The copy is a snapshot: nothing links it back to the source after creation.
type Backup struct {
	reader      PlaylistReader
	writer      PlaylistWriter
	batch       *BatchWriter
	now         func() time.Time
	description string
	public      bool
	logger      *log.Logger
}

// Create reads the source name, creates the backup playlist and appends refs to it.
//
// Every populating call must be confirmed before Create reports success. The source is never modified.
func (b *Backup) Create(ctx context.Context, sourceID string, refs []models.TrackRef) (*BackupPlaylist, error) {
	sourceName, err := b.reader.PlaylistName(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: name of %s: %w", shared.ErrFetchFailed, sourceID, err)
	}
	if sourceName == "" {
		return nil, fmt.Errorf("%w: playlist %s has no name", shared.ErrFetchFailed, sourceID)
	}

	name := BackupName(sourceName, b.now())
	backupID, err := b.writer.CreatePlaylist(ctx, name, b.description, b.public)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrCreateFailed, err)
	}
	if backupID == "" {
		return nil, fmt.Errorf("%w: no playlist id returned for %q", shared.ErrCreateFailed, name)
	}

	b.logger.Info("backup playlist created", "backup", backupID, "name", name)

	backup := &BackupPlaylist{
		Playlist: models.Playlist{
			ID:          backupID,
			Name:        name,
			Description: b.description,
			Public:      b.public,
		},
		SourceID:   sourceID,
		SourceName: sourceName,
	}

	if _, err := b.batch.AppendSequence(ctx, backupID, refs); err != nil {
		return backup, fmt.Errorf("populating backup %s: %w", backupID, err)
	}

	backup.TrackCount = len(refs)
	return backup, nil
}

// Remove unfollows a backup playlist, which is how the Web API deletes one.
//
// Nothing calls Remove during a shuffle; backups are only removed on request.
func (b *Backup) Remove(ctx context.Context, backupID string) error {
	if backupID == "" {
		return fmt.Errorf("%w: backup id", shared.ErrMissingArgument)
	}
	if err := b.writer.UnfollowPlaylist(ctx, backupID); err != nil {
		return fmt.Errorf("%w: removing backup %s: %w", shared.ErrWriteFailed, backupID, err)
	}
	b.logger.Info("backup playlist removed", "backup", backupID)
	return nil
}
