package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/plshuffle/internal/shared"
	tu "github.com/desertthunder/plshuffle/internal/testing"
)

func newTestBackup(svc *tu.FakeService, now time.Time) *Backup {
	logger := shared.NewLogger(nil)
	return &Backup{
		reader:      svc,
		writer:      svc,
		batch:       NewBatchWriter(svc, &tu.CountingPacer{}, 100, logger),
		now:         tu.FixedClock(now),
		description: "Created with plshuffle",
		public:      true,
		logger:      logger,
	}
}

func TestBackupName(t *testing.T) {
	at := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.Local)
	got := BackupName("Road Trip", at)
	want := "Road Trip (Backup 3/5/2024, 2:07:09 PM)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.Local)

	t.Run("Create", func(t *testing.T) {
		t.Run("copies the order into a new playlist", func(t *testing.T) {
			seq := tu.Sequence(250)
			svc := tu.NewFakeService("src", "Road Trip", seq)
			b := newTestBackup(svc, now)

			pl, err := b.Create(ctx, "src", seq)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			wantName := "Road Trip (Backup 1/2/2024, 9:30:00 AM)"
			if pl.Name != wantName {
				t.Errorf("expected name %q, got %q", wantName, pl.Name)
			}
			if pl.SourceID != "src" || pl.SourceName != "Road Trip" {
				t.Errorf("unexpected source %q/%q", pl.SourceID, pl.SourceName)
			}
			if pl.TrackCount != 250 {
				t.Errorf("expected 250 tracks, got %d", pl.TrackCount)
			}

			created := svc.Playlist(pl.ID)
			if created == nil {
				t.Fatalf("backup %s not found", pl.ID)
			}
			if !created.Public || created.Description != "Created with plshuffle" {
				t.Errorf("unexpected backup settings %+v", created)
			}

			got := svc.Tracks(pl.ID)
			for i := range seq {
				if got[i] != seq[i] {
					t.Fatalf("position %d: got %s, want %s", i, got[i], seq[i])
				}
			}

			writes := svc.CallsTo(pl.ID)
			if len(writes) != 3 {
				t.Fatalf("expected 3 populating calls, got %d", len(writes))
			}
			for i, size := range []int{100, 100, 50} {
				if writes[i].Kind != tu.CallAppend || len(writes[i].Tracks) != size {
					t.Errorf("call %d: expected append of %d, got %s of %d", i, size, writes[i].Kind, len(writes[i].Tracks))
				}
			}

			for _, c := range svc.CallsTo("src") {
				if c.IsWrite() {
					t.Errorf("source playlist was written: %+v", c)
				}
			}
		})

		t.Run("name lookup failure", func(t *testing.T) {
			svc := tu.NewFakeService("src", "Road Trip", tu.Sequence(5))
			svc.NameErr = shared.ErrAPIRequest

			_, err := newTestBackup(svc, now).Create(ctx, "src", tu.Sequence(5))
			if !errors.Is(err, shared.ErrFetchFailed) {
				t.Errorf("expected ErrFetchFailed, got %v", err)
			}
			if len(svc.CallsOf(tu.CallCreate)) != 0 {
				t.Error("expected no playlist to be created")
			}
		})

		t.Run("empty source name", func(t *testing.T) {
			svc := tu.NewFakeService("src", "", tu.Sequence(5))

			_, err := newTestBackup(svc, now).Create(ctx, "src", tu.Sequence(5))
			if !errors.Is(err, shared.ErrFetchFailed) {
				t.Errorf("expected ErrFetchFailed, got %v", err)
			}
		})

		t.Run("create returns no id", func(t *testing.T) {
			svc := tu.NewFakeService("src", "Road Trip", tu.Sequence(5))
			svc.OmitCreateID = true

			pl, err := newTestBackup(svc, now).Create(ctx, "src", tu.Sequence(5))
			if !errors.Is(err, shared.ErrCreateFailed) {
				t.Errorf("expected ErrCreateFailed, got %v", err)
			}
			if pl != nil {
				t.Errorf("expected no backup, got %+v", pl)
			}
			if len(svc.CallsOf(tu.CallAppend)) != 0 {
				t.Error("expected no populating calls")
			}
		})

		t.Run("create error", func(t *testing.T) {
			svc := tu.NewFakeService("src", "Road Trip", tu.Sequence(5))
			svc.CreateErr = shared.ErrAPIRequest

			_, err := newTestBackup(svc, now).Create(ctx, "src", tu.Sequence(5))
			if !errors.Is(err, shared.ErrCreateFailed) || !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrCreateFailed wrapping ErrAPIRequest, got %v", err)
			}
		})

		t.Run("every populating call is verified", func(t *testing.T) {
			svc := tu.NewFakeService("src", "Road Trip", tu.Sequence(250))
			appends := 0
			svc.OmitSnapshot = func(c tu.Call) bool {
				appends++
				return appends == 3
			}

			pl, err := newTestBackup(svc, now).Create(ctx, "src", tu.Sequence(250))
			if !errors.Is(err, shared.ErrWriteFailed) {
				t.Fatalf("expected ErrWriteFailed, got %v", err)
			}
			if pl == nil || pl.ID == "" {
				t.Fatal("expected the created backup to be reported")
			}
			if got := len(svc.Tracks(pl.ID)); got != 200 {
				t.Errorf("expected 200 tracks in the partial backup, got %d", got)
			}
		})
	})

	t.Run("Remove", func(t *testing.T) {
		t.Run("unfollows the backup", func(t *testing.T) {
			svc := tu.NewFakeService("backup1", "Road Trip (Backup)", nil)
			if err := newTestBackup(svc, now).Remove(ctx, "backup1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Playlist("backup1") != nil {
				t.Error("expected backup to be removed")
			}
		})

		t.Run("missing id", func(t *testing.T) {
			svc := tu.NewFakeService("src", "Road Trip", nil)
			err := newTestBackup(svc, now).Remove(ctx, "")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("unfollow failure", func(t *testing.T) {
			svc := tu.NewFakeService("backup1", "Road Trip (Backup)", nil)
			svc.UnfollowErr = shared.ErrAPIRequest
			err := newTestBackup(svc, now).Remove(ctx, "backup1")
			if !errors.Is(err, shared.ErrWriteFailed) {
				t.Errorf("expected ErrWriteFailed, got %v", err)
			}
		})
	})
}
