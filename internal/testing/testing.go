// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/toptracks/internal/models"
)

// FakeService is an in-memory [services.Service] holding top tracks and playlist contents.
//
// Errors can be injected per operation; the Calls counters record how often each was invoked.
type FakeService struct {
	User     models.User
	Top      map[models.TimeRange][]models.Track
	Library  []models.Playlist
	Contents map[string][]string
	nextID   int
	mu       sync.Mutex

	CurrentUserErr    error
	TopTracksErr      map[models.TimeRange]error
	PlaylistsErr      error
	CreateErr         error
	ReplaceErr        error
	SetDescriptionErr error

	Calls struct {
		CurrentUser    int
		TopTracks      int
		Playlists      int
		Create         int
		Replace        int
		SetDescription int
	}
}

// NewFakeService returns a FakeService for user with empty top tracks and library.
func NewFakeService(userID string) *FakeService {
	return &FakeService{
		User:         models.User{ID: userID, DisplayName: userID},
		Top:          map[models.TimeRange][]models.Track{},
		Contents:     map[string][]string{},
		TopTracksErr: map[models.TimeRange]error{},
	}
}

// SetTop sets the ranked top tracks for r from track IDs.
func (f *FakeService) SetTop(r models.TimeRange, ids ...string) {
	tracks := make([]models.Track, len(ids))
	for i, id := range ids {
		tracks[i] = models.Track{ID: id, URI: "spotify:track:" + id, Title: "Song " + id, Rank: i + 1}
	}
	f.Top[r] = tracks
}

// AddPlaylist adds an existing playlist with the given contents and returns its ID.
func (f *FakeService) AddPlaylist(name, ownerID string, trackIDs ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID()
	f.Library = append(f.Library, models.Playlist{ID: id, Name: name, OwnerID: ownerID, TrackCount: len(trackIDs)})
	f.Contents[id] = append([]string(nil), trackIDs...)
	return id
}

// PlaylistsNamed returns every playlist in the library called name.
func (f *FakeService) PlaylistsNamed(name string) []models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Playlist
	for _, p := range f.Library {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Description returns the current description of playlist id.
func (f *FakeService) Description(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.Library {
		if p.ID == id {
			return p.Description
		}
	}
	return ""
}

func (f *FakeService) newID() string {
	f.nextID++
	return fmt.Sprintf("pl%d", f.nextID)
}

func (f *FakeService) Name() string { return "fake" }

func (f *FakeService) CurrentUser(ctx context.Context) (*models.User, error) {
	f.Calls.CurrentUser++
	if f.CurrentUserErr != nil {
		return nil, f.CurrentUserErr
	}
	u := f.User
	return &u, nil
}

func (f *FakeService) TopTracks(ctx context.Context, r models.TimeRange, limit int) ([]models.Track, error) {
	f.Calls.TopTracks++
	if err := f.TopTracksErr[r]; err != nil {
		return nil, err
	}
	tracks := f.Top[r]
	if limit < len(tracks) {
		tracks = tracks[:limit]
	}
	return append([]models.Track(nil), tracks...), nil
}

func (f *FakeService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	f.Calls.Playlists++
	if f.PlaylistsErr != nil {
		return nil, f.PlaylistsErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Playlist(nil), f.Library...), nil
}

func (f *FakeService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	f.Calls.Create++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p := models.Playlist{ID: f.newID(), Name: name, Description: description, OwnerID: userID, Public: public}
	f.Library = append(f.Library, p)
	f.Contents[p.ID] = nil
	return &p, nil
}

func (f *FakeService) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.Calls.Replace++
	if f.ReplaceErr != nil {
		return f.ReplaceErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Contents[playlistID]; !ok {
		return fmt.Errorf("playlist %s not found", playlistID)
	}
	f.Contents[playlistID] = append([]string{}, trackIDs...)
	for i := range f.Library {
		if f.Library[i].ID == playlistID {
			f.Library[i].TrackCount = len(trackIDs)
		}
	}
	return nil
}

func (f *FakeService) SetDescription(ctx context.Context, playlistID, description string) error {
	f.Calls.SetDescription++
	if f.SetDescriptionErr != nil {
		return f.SetDescriptionErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.Library {
		if f.Library[i].ID == playlistID {
			f.Library[i].Description = description
			return nil
		}
	}
	return fmt.Errorf("playlist %s not found", playlistID)
}

// FakeAuthorizer is a [services.Authorizer] returning a fixed client or error.
type FakeAuthorizer struct {
	HTTPClient *http.Client
	Err        error
	Calls      int
}

func (a *FakeAuthorizer) Client(ctx context.Context) (*http.Client, error) {
	a.Calls++
	if a.Err != nil {
		return nil, a.Err
	}
	if a.HTTPClient == nil {
		return http.DefaultClient, nil
	}
	return a.HTTPClient, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// AssertIDs fails the test unless got equals want element by element.
func AssertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d tracks %v, got %d %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track %d: expected %s, got %s (all: %v)", i, want[i], got[i], got)
		}
	}
}
