package tasks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plshuffle/internal/shared"
	tu "github.com/desertthunder/plshuffle/internal/testing"
)

const playlistID = "37i9dQZF1DXcBWIGoYBM5M"

type harness struct {
	svc      *tu.FakeService
	notifier *tu.RecordingNotifier
	pacer    *tu.CountingPacer
	logs     *bytes.Buffer
	shuffler *Shuffler
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	h := &harness{
		svc:      tu.NewFakeService(playlistID, "Today's Top Hits", tu.Sequence(n)),
		notifier: &tu.RecordingNotifier{},
		pacer:    &tu.CountingPacer{},
		logs:     &bytes.Buffer{},
	}
	h.shuffler = h.build()
	return h
}

func (h *harness) build() *Shuffler {
	return NewShuffler(ShufflerOpts{
		Reader:            h.svc,
		Writer:            h.svc,
		Notifier:          h.notifier,
		Logger:            shared.NewLogger(h.logs),
		BackupPublic:      true,
		BackupDescription: "Created with plshuffle",
		Rand:              seeded(),
		Now:               tu.FixedClock(time.Date(2024, time.June, 1, 18, 45, 12, 0, time.Local)),
		NewPacer:          func(time.Duration) Pacer { return h.pacer },
	})
}

func TestShufflerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("250 tracks end to end", func(t *testing.T) {
		h := newHarness(t, 250)
		progress := make(chan ProgressUpdate, 100)

		result, err := h.shuffler.Run(ctx, "spotify:playlist:"+playlistID, progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.State != Done || h.shuffler.State() != Done {
			t.Errorf("expected state done, got %s", result.State)
		}
		if result.PlaylistID != playlistID || result.TrackCount != 250 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.PlaylistName != "Today's Top Hits" {
			t.Errorf("expected playlist name, got %q", result.PlaylistName)
		}
		if result.OperationID == "" {
			t.Error("expected operation id")
		}

		wantName := "Today's Top Hits (Backup 6/1/2024, 6:45:12 PM)"
		if result.BackupName != wantName {
			t.Errorf("expected backup name %q, got %q", wantName, result.BackupName)
		}

		backupCalls := h.svc.CallsTo(result.BackupID)
		if len(backupCalls) != 3 {
			t.Fatalf("expected 3 backup writes, got %d", len(backupCalls))
		}
		for i, size := range []int{100, 100, 50} {
			if backupCalls[i].Kind != tu.CallAppend || len(backupCalls[i].Tracks) != size {
				t.Errorf("backup call %d: expected append of %d, got %s of %d", i, size, backupCalls[i].Kind, len(backupCalls[i].Tracks))
			}
		}
		backup := h.svc.Tracks(result.BackupID)
		for i, ref := range tu.Sequence(250) {
			if backup[i] != ref {
				t.Fatalf("backup position %d: got %s, want %s", i, backup[i], ref)
			}
		}

		var writes []tu.Call
		for _, c := range h.svc.CallsTo(playlistID) {
			if c.IsWrite() {
				writes = append(writes, c)
			}
		}
		if len(writes) != 3 {
			t.Fatalf("expected 3 writes to the original, got %d", len(writes))
		}
		for i, want := range []struct {
			kind tu.CallKind
			size int
		}{{tu.CallReplace, 100}, {tu.CallAppend, 100}, {tu.CallAppend, 50}} {
			if writes[i].Kind != want.kind || len(writes[i].Tracks) != want.size {
				t.Errorf("write %d: expected %s of %d, got %s of %d", i, want.kind, want.size, writes[i].Kind, len(writes[i].Tracks))
			}
		}

		final := h.svc.Tracks(playlistID)
		if !tu.SameMultiset(final, tu.Sequence(250)) {
			t.Error("final playlist is not a permutation of the original")
		}

		msgs := h.notifier.Messages()
		if len(msgs) != 2 || msgs[0] != StartMessage || msgs[1] != SuccessMessage {
			t.Errorf("unexpected notifications %v", msgs)
		}

		var last ProgressUpdate
		close(progress)
		for u := range progress {
			last = u
		}
		if last.State != Done {
			t.Errorf("expected last progress update to be done, got %s", last.State)
		}
	})

	t.Run("backup completes before the original is written", func(t *testing.T) {
		h := newHarness(t, 150)

		result, err := h.shuffler.Run(ctx, playlistID, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		calls := h.svc.Calls()
		lastBackup, firstOriginal := -1, -1
		for i, c := range calls {
			if c.PlaylistID == result.BackupID && c.IsWrite() {
				lastBackup = i
			}
			if c.PlaylistID == playlistID && c.IsWrite() && firstOriginal < 0 {
				firstOriginal = i
			}
		}
		if lastBackup < 0 || firstOriginal < 0 || lastBackup > firstOriginal {
			t.Errorf("expected all backup writes before original writes, got %d and %d", lastBackup, firstOriginal)
		}
	})

	t.Run("failed backup creation leaves the original untouched", func(t *testing.T) {
		for _, tc := range []struct {
			name  string
			setup func(*tu.FakeService)
			want  error
		}{
			{name: "create error", setup: func(s *tu.FakeService) { s.CreateErr = shared.ErrAPIRequest }, want: shared.ErrCreateFailed},
			{name: "no id", setup: func(s *tu.FakeService) { s.OmitCreateID = true }, want: shared.ErrCreateFailed},
			{name: "name unavailable", setup: func(s *tu.FakeService) { s.NameErr = shared.ErrAPIRequest }, want: shared.ErrFetchFailed},
			{
				name: "populating call unconfirmed",
				setup: func(s *tu.FakeService) {
					s.OmitSnapshot = func(c tu.Call) bool { return c.PlaylistID != playlistID }
				},
				want: shared.ErrWriteFailed,
			},
		} {
			t.Run(tc.name, func(t *testing.T) {
				h := newHarness(t, 120)
				tc.setup(h.svc)

				result, err := h.shuffler.Run(ctx, playlistID, nil)
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
				if result.State != Aborted || result.FailedStep != BackingUp {
					t.Errorf("expected abort while backing up, got %s/%s", result.State, result.FailedStep)
				}

				for _, c := range h.svc.CallsTo(playlistID) {
					if c.IsWrite() {
						t.Fatalf("original was written: %+v", c)
					}
				}
				if got := h.svc.Tracks(playlistID); got[0] != "t1" || got[119] != "t120" {
					t.Error("original order changed")
				}

				msgs := h.notifier.Messages()
				if len(msgs) != 2 || msgs[1] != FailureMessage {
					t.Errorf("expected failure notification, got %v", msgs)
				}
			})
		}
	})

	t.Run("empty playlist fails before any playlist is created", func(t *testing.T) {
		h := newHarness(t, 0)

		result, err := h.shuffler.Run(ctx, playlistID, nil)
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		if result.FailedStep != Fetching {
			t.Errorf("expected failure while fetching, got %s", result.FailedStep)
		}
		if len(h.svc.CallsOf(tu.CallCreate)) != 0 {
			t.Error("expected no playlist to be created")
		}
		if msgs := h.notifier.Messages(); len(msgs) != 1 || msgs[0] != FailureMessage {
			t.Errorf("expected only a failure notification, got %v", msgs)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		h := newHarness(t, 10)
		h.svc.TracksErr = shared.ErrTokenExpired

		_, err := h.shuffler.Run(ctx, playlistID, nil)
		if !errors.Is(err, shared.ErrFetchFailed) || !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrFetchFailed wrapping ErrTokenExpired, got %v", err)
		}
		if !strings.Contains(h.logs.String(), "token_expired") {
			t.Errorf("expected error kind in logs, got %q", h.logs.String())
		}
	})

	t.Run("non-playlist reference", func(t *testing.T) {
		h := newHarness(t, 10)

		_, err := h.shuffler.Run(ctx, "spotify:album:"+playlistID, nil)
		if !errors.Is(err, shared.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference, got %v", err)
		}
		if len(h.svc.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %d", len(h.svc.Calls()))
		}
	})

	t.Run("unconfirmed first append leaves only the replaced chunk", func(t *testing.T) {
		h := newHarness(t, 250)
		h.svc.OmitSnapshot = func(c tu.Call) bool {
			return c.PlaylistID == playlistID && c.Kind == tu.CallAppend
		}

		result, err := h.shuffler.Run(ctx, playlistID, nil)
		if !errors.Is(err, shared.ErrWriteFailed) {
			t.Fatalf("expected ErrWriteFailed, got %v", err)
		}
		if result.FailedStep != WritingBack {
			t.Errorf("expected failure while writing back, got %s", result.FailedStep)
		}
		if result.BackupID == "" {
			t.Error("expected the backup id to be reported")
		}
		if got := len(h.svc.Tracks(result.BackupID)); got != 250 {
			t.Errorf("expected backup to keep 250 tracks, got %d", got)
		}

		original := h.svc.Tracks(playlistID)
		if len(original) != 100 {
			t.Fatalf("expected original to hold the first 100 shuffled tracks, got %d", len(original))
		}
		replace := h.svc.CallsOf(tu.CallReplace)[0].Tracks
		for i := range original {
			if original[i] != replace[i] {
				t.Fatalf("position %d: got %s, want %s", i, original[i], replace[i])
			}
		}

		if msgs := h.notifier.Messages(); msgs[len(msgs)-1] != FailureMessage {
			t.Errorf("expected failure notification, got %v", msgs)
		}
	})

	t.Run("unconfirmed final append stops after 200 tracks", func(t *testing.T) {
		h := newHarness(t, 250)
		appends := 0
		h.svc.OmitSnapshot = func(c tu.Call) bool {
			if c.PlaylistID != playlistID || c.Kind != tu.CallAppend {
				return false
			}
			appends++
			return appends == 2
		}

		_, err := h.shuffler.Run(ctx, playlistID, nil)
		if !errors.Is(err, shared.ErrWriteFailed) {
			t.Fatalf("expected ErrWriteFailed, got %v", err)
		}
		if got := len(h.svc.Tracks(playlistID)); got != 200 {
			t.Errorf("expected 200 tracks, got %d", got)
		}
	})

	t.Run("pacing", func(t *testing.T) {
		h := newHarness(t, 250)
		if _, err := h.shuffler.Run(ctx, playlistID, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		// start, two between backup chunks, before write-back, two between write-back chunks
		if h.pacer.Waits() != 6 {
			t.Errorf("expected 6 pacing waits, got %d", h.pacer.Waits())
		}
	})

	t.Run("cancelled context aborts before backing up", func(t *testing.T) {
		h := newHarness(t, 10)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := h.shuffler.Run(cctx, playlistID, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.State != Aborted {
			t.Errorf("expected aborted, got %s", result.State)
		}
		if len(h.svc.CallsOf(tu.CallCreate)) != 0 {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("second run while one is in flight", func(t *testing.T) {
		h := newHarness(t, 10)
		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		h.svc.Before = func(_ context.Context, c tu.Call) {
			if c.Kind == tu.CallTracks {
				once.Do(func() { close(entered) })
				<-release
			}
		}

		done := make(chan error, 1)
		go func() {
			_, err := h.shuffler.Run(ctx, playlistID, nil)
			done <- err
		}()

		<-entered
		if !h.shuffler.Running() {
			t.Error("expected shuffler to report running")
		}
		if _, err := h.shuffler.Run(ctx, playlistID, nil); !errors.Is(err, shared.ErrOperationInFlight) {
			t.Errorf("expected ErrOperationInFlight, got %v", err)
		}
		close(release)

		if err := <-done; err != nil {
			t.Fatalf("expected first run to succeed, got %v", err)
		}
		if h.shuffler.Running() {
			t.Error("expected shuffler to be idle after run")
		}
		if _, err := h.shuffler.Run(ctx, playlistID, nil); err != nil {
			t.Errorf("expected a later run to succeed, got %v", err)
		}
	})

	t.Run("missing collaborators", func(t *testing.T) {
		s := NewShuffler(ShufflerOpts{})
		if _, err := s.Run(ctx, playlistID, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestShufflerRemoveBackup(t *testing.T) {
	h := newHarness(t, 10)
	result, err := h.shuffler.Run(context.Background(), playlistID, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := h.shuffler.RemoveBackup(context.Background(), result.BackupID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h.svc.Playlist(result.BackupID) != nil {
		t.Error("expected backup to be removed")
	}
	if h.svc.Playlist(playlistID) == nil {
		t.Error("expected original to remain")
	}
}
