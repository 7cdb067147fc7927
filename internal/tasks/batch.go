package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plshuffle/internal/models"
	"github.com/desertthunder/plshuffle/internal/shared"
)

// WriteKind identifies which remote write a chunk was sent with.
type WriteKind int

const (
	WriteReplace WriteKind = iota // sets the playlist's entire track list
	WriteAppend                   // adds tracks to the end of the playlist
)

func (k WriteKind) String() string {
	switch k {
	case WriteReplace:
		return "replace"
	case WriteAppend:
		return "append"
	default:
		return ""
	}
}

// ChunkWritten is passed to the BatchWriter callback after each confirmed call.
type ChunkWritten struct {
	Kind     WriteKind
	Chunk    models.Chunk
	Total    int    // Number of chunks in the sequence
	Snapshot string // Confirmation token returned by the call
}

// BatchWriter synchronizes a playlist's track list with a sequence in bounded, paced write calls.
//
// Calls are strictly sequential. Each must return a snapshot id; the first call without one aborts the write.
// Earlier chunks stay applied remotely, so a failed write can leave the playlist partially written.
type BatchWriter struct {
	writer    PlaylistWriter
	pacer     Pacer
	chunkSize int
	logger    *log.Logger
	onChunk   func(ChunkWritten)
}

// NewBatchWriter creates a BatchWriter. A chunkSize outside 1..100 falls back to 100.
func NewBatchWriter(writer PlaylistWriter, pacer Pacer, chunkSize int, logger *log.Logger) *BatchWriter {
	if chunkSize <= 0 || chunkSize > models.MaxChunkSize {
		chunkSize = models.MaxChunkSize
	}
	if pacer == nil {
		pacer = NewPacer(0)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BatchWriter{writer: writer, pacer: pacer, chunkSize: chunkSize, logger: logger}
}

// OnChunk registers fn to be called after every confirmed chunk.
func (b *BatchWriter) OnChunk(fn func(ChunkWritten)) {
	b.onChunk = fn
}

// WriteSequence makes refs the playlist's exact contents: the first chunk replaces, later chunks append.
//
// An empty sequence issues a single replace with no tracks, clearing the playlist.
// Returns the snapshot id of the last call.
func (b *BatchWriter) WriteSequence(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error) {
	chunks := models.Chunks(refs, b.chunkSize)
	if len(chunks) == 0 {
		chunks = []models.Chunk{{Index: 0, Offset: 0, Tracks: []models.TrackRef{}}}
	}

	var snapshot string
	for _, chunk := range chunks {
		kind := WriteAppend
		if chunk.Index == 0 {
			kind = WriteReplace
		}

		var err error
		if snapshot, err = b.writeChunk(ctx, playlistID, kind, chunk, len(chunks)); err != nil {
			return "", err
		}
	}
	return snapshot, nil
}

// AppendSequence adds refs to the end of the playlist, appending every chunk and verifying each call.
//
// Used to populate a freshly created playlist. An empty sequence makes no calls.
func (b *BatchWriter) AppendSequence(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error) {
	chunks := models.Chunks(refs, b.chunkSize)

	var snapshot string
	for _, chunk := range chunks {
		var err error
		if snapshot, err = b.writeChunk(ctx, playlistID, WriteAppend, chunk, len(chunks)); err != nil {
			return "", err
		}
	}
	return snapshot, nil
}

func (b *BatchWriter) writeChunk(ctx context.Context, playlistID string, kind WriteKind, chunk models.Chunk, total int) (string, error) {
	if chunk.Index > 0 {
		if err := b.pacer.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: chunk %d/%d: %w", shared.ErrWriteFailed, chunk.Index+1, total, err)
		}
	}

	var (
		snapshot string
		err      error
	)
	switch kind {
	case WriteReplace:
		snapshot, err = b.writer.ReplaceTracks(ctx, playlistID, chunk.Tracks)
	default:
		snapshot, err = b.writer.AppendTracks(ctx, playlistID, chunk.Tracks)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %s chunk %d/%d: %w", shared.ErrWriteFailed, kind, chunk.Index+1, total, err)
	}
	if snapshot == "" {
		return "", fmt.Errorf("%w: %s chunk %d/%d returned no snapshot id", shared.ErrWriteFailed, kind, chunk.Index+1, total)
	}

	b.logger.Debug("chunk written",
		"playlist", playlistID,
		"kind", kind,
		"chunk", chunk.Index+1,
		"of", total,
		"tracks", len(chunk.Tracks),
		"snapshot", snapshot,
	)

	if b.onChunk != nil {
		b.onChunk(ChunkWritten{Kind: kind, Chunk: chunk, Total: total, Snapshot: snapshot})
	}
	return snapshot, nil
}
