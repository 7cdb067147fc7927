package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plshuffle/internal/models"
	"github.com/desertthunder/plshuffle/internal/services"
	"github.com/desertthunder/plshuffle/internal/shared"
)

const (
	StartMessage   = "Backing up and shuffling playlist (may take a minute)..."
	SuccessMessage = "Playlist shuffled successfully! May need to refresh/reload your playlist."
	FailureMessage = "Something went wrong shuffling playlist. Please try again."
)

// DefaultDelay is the pause between successive remote write calls.
const DefaultDelay = time.Second

// PlaylistReader reads a playlist's metadata and contents.
type PlaylistReader interface {
	PlaylistName(ctx context.Context, playlistID string) (string, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRef, error)
}

// PlaylistWriter creates and mutates playlists.
//
// ReplaceTracks and AppendTracks return the snapshot id confirming the write.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	ReplaceTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error)
	AppendTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error)
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// Notifier shows a transient status message to the user. Implementations must not block.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// ShuffleResult contains the outcome of a single run.
type ShuffleResult struct {
	OperationID  string    `json:"operation_id"`
	PlaylistID   string    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name,omitempty"`
	BackupID     string    `json:"backup_id,omitempty"`
	BackupName   string    `json:"backup_name,omitempty"`
	TrackCount   int       `json:"track_count"`
	State        State     `json:"state"`
	FailedStep   State     `json:"failed_step,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ShufflerOpts configures a [Shuffler]. Reader and Writer are required.
type ShufflerOpts struct {
	Reader            PlaylistReader
	Writer            PlaylistWriter
	Notifier          Notifier
	Logger            *log.Logger
	Delay             time.Duration             // Pause between remote writes
	ChunkSize         int                       // Tracks per write call, at most 100
	BackupPublic      bool                      // Visibility of created backups
	BackupDescription string                    // Description set on created backups
	Rand              *rand.Rand                // Defaults to a runtime-seeded source
	Now               func() time.Time          // Clock used for backup names
	NewPacer          func(time.Duration) Pacer // Called once per run
}

// Shuffler orchestrates fetch → backup → shuffle → write-back for one playlist at a time.
//
// It is the single error boundary: failures are logged with their kind and step, reported through one
// generic failure notification, and returned wrapped around a sentinel from [shared].
type Shuffler struct {
	reader      PlaylistReader
	writer      PlaylistWriter
	notifier    Notifier
	logger      *log.Logger
	delay       time.Duration
	chunkSize   int
	public      bool
	description string
	rng         *rand.Rand
	now         func() time.Time
	newPacer    func(time.Duration) Pacer

	running atomic.Bool
	state   atomic.Int32
}

// NewShuffler creates a Shuffler, filling unset options with defaults.
func NewShuffler(opts ShufflerOpts) *Shuffler {
	s := &Shuffler{
		reader:      opts.Reader,
		writer:      opts.Writer,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		delay:       opts.Delay,
		chunkSize:   opts.ChunkSize,
		public:      opts.BackupPublic,
		description: opts.BackupDescription,
		rng:         opts.Rand,
		now:         opts.Now,
		newPacer:    opts.NewPacer,
	}

	if s.notifier == nil {
		s.notifier = NotifierFunc(func(string) {})
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	if s.delay < 0 {
		s.delay = 0
	}
	if s.chunkSize <= 0 || s.chunkSize > models.MaxChunkSize {
		s.chunkSize = models.MaxChunkSize
	}
	if s.rng == nil {
		s.rng = newRand()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newPacer == nil {
		s.newPacer = func(d time.Duration) Pacer { return NewPacer(d) }
	}
	return s
}

// Running reports whether a run is in flight.
func (s *Shuffler) Running() bool {
	return s.running.Load()
}

// State returns the state of the current or most recent run.
func (s *Shuffler) State() State {
	return State(s.state.Load())
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (s *Shuffler) enter(result *ShuffleResult, state State) {
	result.State = state
	s.state.Store(int32(state))
}

// Run backs up and shuffles the playlist identified by ref.
//
// ref may be a playlist URI, an open.spotify.com link or a bare id. A second Run while one is in flight
// fails immediately with [shared.ErrOperationInFlight]. On failure the returned result records the step
// that failed and, when one was created, the backup id.
func (s *Shuffler) Run(ctx context.Context, ref string, progress chan<- ProgressUpdate) (*ShuffleResult, error) {
	if s.reader == nil || s.writer == nil {
		return nil, fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, shared.ErrOperationInFlight
	}
	defer s.running.Store(false)

	result := &ShuffleResult{OperationID: shared.GenerateID(), StartedAt: s.now()}
	s.enter(result, Idle)
	logger := shared.WithLogger(s.logger, "op", result.OperationID)

	err := s.run(ctx, ref, result, logger, progress)
	result.FinishedAt = s.now()

	if err != nil {
		result.FailedStep = result.State
		s.enter(result, Aborted)
		logger.Error("shuffle aborted",
			"playlist", result.PlaylistID,
			"step", result.FailedStep,
			"kind", errorKind(err),
			"backup", result.BackupID,
			"err", err,
		)
		s.notifier.Notify(FailureMessage)
		sendProgress(progress, abortedUpdate(result, err))
		return result, err
	}

	s.enter(result, Done)
	logger.Info("shuffle complete",
		"playlist", result.PlaylistID,
		"tracks", result.TrackCount,
		"backup", result.BackupID,
		"elapsed", result.FinishedAt.Sub(result.StartedAt),
	)
	s.notifier.Notify(SuccessMessage)
	sendProgress(progress, doneUpdate(result))
	return result, nil
}

func (s *Shuffler) run(ctx context.Context, ref string, result *ShuffleResult, logger *log.Logger, progress chan<- ProgressUpdate) error {
	s.enter(result, Fetching)

	playlistID, err := services.ParsePlaylistRef(ref)
	if err != nil {
		return err
	}
	result.PlaylistID = playlistID
	sendProgress(progress, fetchingUpdate(playlistID))

	refs, err := s.reader.PlaylistTracks(ctx, playlistID)
	if err != nil {
		if errors.Is(err, shared.ErrFetchFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w: playlist %s has no tracks", shared.ErrFetchFailed, playlistID)
	}
	result.TrackCount = len(refs)
	logger.Debug("playlist fetched", "playlist", playlistID, "tracks", len(refs))
	sendProgress(progress, fetchedUpdate(len(refs)))

	s.notifier.Notify(StartMessage)

	pacer := s.newPacer(s.delay)
	batch := NewBatchWriter(s.writer, pacer, s.chunkSize, logger)

	if err := pacer.Wait(ctx); err != nil {
		return fmt.Errorf("waiting to back up: %w", err)
	}

	s.enter(result, BackingUp)
	sendProgress(progress, backingUpUpdate())
	batch.OnChunk(func(c ChunkWritten) { sendProgress(progress, chunkUpdate(BackingUp, c)) })

	backup := s.backup(batch, logger)
	pl, err := backup.Create(ctx, playlistID, refs)
	if pl != nil {
		result.BackupID = pl.ID
		result.BackupName = pl.Name
	}
	if err != nil {
		return err
	}
	result.PlaylistName = pl.SourceName
	sendProgress(progress, backupCreatedUpdate(pl))

	s.enter(result, Shuffling)
	sendProgress(progress, shufflingUpdate(len(refs)))
	shuffled := Shuffle(refs, s.rng)

	if err := pacer.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrWriteFailed, err)
	}

	s.enter(result, WritingBack)
	sendProgress(progress, writingBackUpdate())
	batch.OnChunk(func(c ChunkWritten) { sendProgress(progress, chunkUpdate(WritingBack, c)) })

	if _, err := batch.WriteSequence(ctx, playlistID, shuffled); err != nil {
		return err
	}
	return nil
}

// RemoveBackup deletes a backup created by an earlier run.
func (s *Shuffler) RemoveBackup(ctx context.Context, backupID string) error {
	if s.writer == nil {
		return fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}
	return s.backup(nil, s.logger).Remove(ctx, backupID)
}

func (s *Shuffler) backup(batch *BatchWriter, logger *log.Logger) *Backup {
	return &Backup{
		reader:      s.reader,
		writer:      s.writer,
		batch:       batch,
		now:         s.now,
		description: s.description,
		public:      s.public,
		logger:      logger,
	}
}

// errorKind classifies err for logging.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, shared.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, shared.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, shared.ErrFetchFailed):
		return "fetch"
	case errors.Is(err, shared.ErrCreateFailed):
		return "create"
	case errors.Is(err, shared.ErrWriteFailed):
		return "write"
	default:
		return "unknown"
	}
}
