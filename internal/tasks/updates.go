package tasks

import "fmt"

// ProgressUpdate represents a progress event during a shuffle.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	State   State  // Operation state the update belongs to
	Step    int    // Current step number within the state
	Total   int    // Total steps in this state
	Message string // Human-readable message for display
	Data    any    // Optional state-specific data for advanced UIs
}

// State is a step of the shuffle state machine.
//
// A run moves Idle → Fetching → BackingUp → Shuffling → WritingBack → Done.
// Aborted is reachable from every state after Idle.
type State int

const (
	Idle State = iota
	Fetching
	BackingUp
	Shuffling
	WritingBack
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case BackingUp:
		return "backing_up"
	case Shuffling:
		return "shuffling"
	case WritingBack:
		return "writing_back"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return ""
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func fetchingUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		State:   Fetching,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", playlistID),
	}
}

func fetchedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		State:   Fetching,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks", count),
	}
}

func backingUpUpdate() ProgressUpdate {
	return ProgressUpdate{
		State:   BackingUp,
		Message: "Creating backup playlist...",
	}
}

func backupCreatedUpdate(pl *BackupPlaylist) ProgressUpdate {
	return ProgressUpdate{
		State:   BackingUp,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Backup created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func shufflingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		State:   Shuffling,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Shuffling %d tracks...", count),
	}
}

func writingBackUpdate() ProgressUpdate {
	return ProgressUpdate{
		State:   WritingBack,
		Message: "Writing shuffled order...",
	}
}

func chunkUpdate(state State, c ChunkWritten) ProgressUpdate {
	return ProgressUpdate{
		State:   state,
		Step:    c.Chunk.Index + 1,
		Total:   c.Total,
		Message: fmt.Sprintf("[%d/%d] %s %d tracks", c.Chunk.Index+1, c.Total, c.Kind, len(c.Chunk.Tracks)),
		Data:    c,
	}
}

func doneUpdate(result *ShuffleResult) ProgressUpdate {
	return ProgressUpdate{
		State:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Shuffled %d tracks in %s", result.TrackCount, result.PlaylistName),
		Data:    result,
	}
}

func abortedUpdate(result *ShuffleResult, err error) ProgressUpdate {
	return ProgressUpdate{
		State:   Aborted,
		Message: fmt.Sprintf("Aborted while %s: %v", result.FailedStep, err),
		Data:    result,
	}
}
