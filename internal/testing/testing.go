// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plshuffle/internal/models"
	"github.com/desertthunder/plshuffle/internal/shared"
)

// CallKind names a [FakeService] method.
type CallKind string

const (
	CallName     CallKind = "name"
	CallTracks   CallKind = "tracks"
	CallCreate   CallKind = "create"
	CallReplace  CallKind = "replace"
	CallAppend   CallKind = "append"
	CallUnfollow CallKind = "unfollow"
)

// Call records one invocation of a [FakeService] method.
type Call struct {
	Kind       CallKind
	PlaylistID string
	Tracks     []models.TrackRef
	Name       string
	Public     bool
}

// IsWrite reports whether the call mutates a playlist's tracks.
func (c Call) IsWrite() bool {
	return c.Kind == CallReplace || c.Kind == CallAppend
}

// FakePlaylist is the remote state of one playlist held by [FakeService].
type FakePlaylist struct {
	Name        string
	Description string
	Public      bool
	Tracks      []models.TrackRef
}

// FakeService is an in-memory playlist backend implementing [services.Service].
//
// Writes apply to Playlists and return a snapshot id unless OmitSnapshot or WriteErr reject them,
// in which case the playlist is left unchanged.
type FakeService struct {
	mu        sync.Mutex
	Playlists map[string]*FakePlaylist
	calls     []Call
	created   int

	ListErr      error
	NameErr      error
	TracksErr    error
	CreateErr    error
	OmitCreateID bool
	OmitSnapshot func(c Call) bool
	WriteErr     func(c Call) error
	UnfollowErr  error

	// Before runs at the start of every call, outside the lock.
	Before func(ctx context.Context, c Call)
}

// NewFakeService creates a FakeService holding a single playlist with id, name and tracks.
func NewFakeService(id, name string, tracks []models.TrackRef) *FakeService {
	return &FakeService{
		Playlists: map[string]*FakePlaylist{
			id: {Name: name, Public: true, Tracks: slices.Clone(tracks)},
		},
	}
}

func (f *FakeService) record(ctx context.Context, c Call) {
	if f.Before != nil {
		f.Before(ctx, c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of every call made so far, in order.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the calls that targeted playlistID.
func (f *FakeService) CallsTo(playlistID string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.PlaylistID == playlistID {
			out = append(out, c)
		}
	}
	return out
}

// CallsOf returns the calls of the given kind.
func (f *FakeService) CallsOf(kind CallKind) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Tracks returns the current contents of playlistID.
func (f *FakeService) Tracks(playlistID string) []models.TrackRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pl, ok := f.Playlists[playlistID]; ok {
		return slices.Clone(pl.Tracks)
	}
	return nil
}

// Playlist returns the playlist with playlistID, or nil.
func (f *FakeService) Playlist(playlistID string) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Playlists[playlistID]
}

func (f *FakeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (f *FakeService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.Playlists))
	for id := range f.Playlists {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	playlists := make([]models.Playlist, 0, len(ids))
	for _, id := range ids {
		pl := f.Playlists[id]
		playlists = append(playlists, models.Playlist{
			ID:          id,
			Name:        pl.Name,
			Description: pl.Description,
			Public:      pl.Public,
			TrackCount:  len(pl.Tracks),
		})
	}
	return playlists, nil
}

func (f *FakeService) PlaylistName(ctx context.Context, playlistID string) (string, error) {
	f.record(ctx, Call{Kind: CallName, PlaylistID: playlistID})
	if f.NameErr != nil {
		return "", f.NameErr
	}
	pl := f.Playlist(playlistID)
	if pl == nil {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return pl.Name, nil
}

func (f *FakeService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRef, error) {
	f.record(ctx, Call{Kind: CallTracks, PlaylistID: playlistID})
	if f.TracksErr != nil {
		return nil, f.TracksErr
	}
	if f.Playlist(playlistID) == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return f.Tracks(playlistID), nil
}

func (f *FakeService) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	f.record(ctx, Call{Kind: CallCreate, Name: name, Public: public})
	if f.CreateErr != nil {
		return "", f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	id := fmt.Sprintf("backup%d", f.created)
	if f.Playlists == nil {
		f.Playlists = map[string]*FakePlaylist{}
	}
	f.Playlists[id] = &FakePlaylist{Name: name, Description: description, Public: public}
	if f.OmitCreateID {
		return "", nil
	}
	return id, nil
}

func (f *FakeService) ReplaceTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error) {
	return f.write(ctx, Call{Kind: CallReplace, PlaylistID: playlistID, Tracks: slices.Clone(refs)})
}

func (f *FakeService) AppendTracks(ctx context.Context, playlistID string, refs []models.TrackRef) (string, error) {
	return f.write(ctx, Call{Kind: CallAppend, PlaylistID: playlistID, Tracks: slices.Clone(refs)})
}

func (f *FakeService) write(ctx context.Context, c Call) (string, error) {
	f.record(ctx, c)
	if f.WriteErr != nil {
		if err := f.WriteErr(c); err != nil {
			return "", err
		}
	}
	if f.OmitSnapshot != nil && f.OmitSnapshot(c) {
		return "", nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	pl, ok := f.Playlists[c.PlaylistID]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, c.PlaylistID)
	}
	if c.Kind == CallReplace {
		pl.Tracks = slices.Clone(c.Tracks)
	} else {
		pl.Tracks = append(pl.Tracks, c.Tracks...)
	}
	return fmt.Sprintf("snapshot-%d", len(f.calls)), nil
}

func (f *FakeService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	f.record(ctx, Call{Kind: CallUnfollow, PlaylistID: playlistID})
	if f.UnfollowErr != nil {
		return f.UnfollowErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Playlists[playlistID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	delete(f.Playlists, playlistID)
	return nil
}

func (f *FakeService) Name() string { return "fake" }

// Sequence returns the refs t1..tn.
func Sequence(n int) []models.TrackRef {
	refs := make([]models.TrackRef, n)
	for i := range refs {
		refs[i] = models.TrackRef(fmt.Sprintf("t%d", i+1))
	}
	return refs
}

// SameMultiset reports whether a and b hold the same refs with the same multiplicities.
func SameMultiset(a, b []models.TrackRef) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[models.TrackRef]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	for _, r := range b {
		counts[r]--
		if counts[r] < 0 {
			return false
		}
	}
	return true
}

// RecordingNotifier collects notification messages.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *RecordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

// Messages returns the notifications received so far.
func (n *RecordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.messages)
}

// CountingPacer never blocks and counts Wait calls. It honours context cancellation.
type CountingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *CountingPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return nil
}

// Waits returns the number of Wait calls.
func (p *CountingPacer) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
