// package services defines the interfaces for talking to Spotify and obtaining an authorized HTTP client
package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/toptracks/internal/models"
)

// Service defines the Spotify operations needed to keep top tracks playlists in sync.
type Service interface {
	// CurrentUser returns the profile of the authorized user.
	CurrentUser(ctx context.Context) (*models.User, error)

	// TopTracks returns up to limit tracks ranked by the service for the given time range.
	TopTracks(ctx context.Context, timeRange models.TimeRange, limit int) ([]models.Track, error)

	// Playlists retrieves every playlist in the user's library, following pagination.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates an empty playlist for userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)

	// ReplaceTracks sets the playlist's items to exactly trackIDs, in order.
	// An empty slice clears the playlist.
	ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// SetDescription updates the playlist description.
	SetDescription(ctx context.Context, playlistID, description string) error

	// Name returns the name of the service
	Name() string
}

// Authorizer produces an HTTP client carrying a valid user credential.
//
// Implementations may run an interactive flow the first time and reuse a cached credential afterwards.
type Authorizer interface {
	Client(ctx context.Context) (*http.Client, error)
}
