// Spotify Web API implementation of [Service], backed by [spotify.Client]
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"
)

// maxItemsPerRequest is the Spotify limit for playlist item writes.
const maxItemsPerRequest = 100

// playlistPageSize is the largest page accepted by the playlists endpoint.
const playlistPageSize = 50

// SpotifyService implements the Service interface for Spotify API interactions.
//
// Every request waits on a [rate.Limiter]; nothing is retried.
type SpotifyService struct {
	client  *spotify.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// SpotifyOpts contains configuration options for creating a SpotifyService.
type SpotifyOpts struct {
	HTTPClient        *http.Client // Authorized client, usually from an [Authorizer]
	BaseURL           string       // API base URL with trailing slash; empty uses the public API
	RequestsPerSecond float64      // <= 0 disables pacing
	Logger            *log.Logger
}

// NewSpotifyService creates a new Spotify service sending requests through opts.HTTPClient.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("%w: Spotify service requires an authorized HTTP client", shared.ErrNotAuthenticated)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var clientOpts []spotify.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.BaseURL))
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &SpotifyService{
		client:  spotify.New(opts.HTTPClient, clientOpts...),
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %w", shared.ErrAPIRequest, err)
	}

	return &models.User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// TopTracks retrieves the user's top tracks for timeRange in a single request.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange models.TimeRange, limit int) ([]models.Track, error) {
	if !timeRange.Valid() {
		return nil, fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, timeRange)
	}
	if limit < 1 || limit > models.MaxTopTracks {
		return nil, fmt.Errorf("%w: limit %d out of range 1..%d", shared.ErrInvalidArgument, limit, models.MaxTopTracks)
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.client.CurrentUsersTopTracks(ctx,
		spotify.Limit(limit),
		spotify.Timerange(spotify.Range(timeRange)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: top tracks (%s): %w", shared.ErrAPIRequest, timeRange, err)
	}

	tracks := make([]models.Track, 0, len(page.Tracks))
	for i, ft := range page.Tracks {
		track := models.Track{
			ID:    string(ft.ID),
			URI:   string(ft.URI),
			Title: ft.Name,
			Album: ft.Album.Name,
			Rank:  i + 1,
		}
		if len(ft.Artists) > 0 {
			track.Artist = ft.Artists[0].Name
		}
		tracks = append(tracks, track)
	}

	s.logger.Debug("fetched top tracks", "range", timeRange, "count", len(tracks))
	return tracks, nil
}

// Playlists retrieves all playlists for the authenticated user, paging by offset until the reported total is reached.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("%w: playlists (offset %d): %w", shared.ErrAPIRequest, offset, err)
		}

		for _, sp := range page.Playlists {
			playlists = append(playlists, toPlaylist(sp))
		}

		offset += len(page.Playlists)
		if len(page.Playlists) == 0 || offset >= int(page.Total) {
			break
		}
	}

	s.logger.Debug("fetched playlists", "count", len(playlists))
	return playlists, nil
}

// CreatePlaylist creates a new, non-collaborative playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user ID and playlist name are required", shared.ErrInvalidArgument)
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	fp, err := s.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist %q: %w", shared.ErrAPIRequest, name, err)
	}

	playlist := toPlaylist(fp.SimplePlaylist)
	if playlist.OwnerID == "" {
		playlist.OwnerID = userID
	}
	return &playlist, nil
}

// ReplaceTracks overwrites the playlist's items with trackIDs.
//
// The first request replaces (and with no IDs clears) the playlist; overflow past the
// per-request limit is appended in order.
func (s *SpotifyService) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrInvalidArgument)
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	first := ids[:min(len(ids), maxItemsPerRequest)]
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.client.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), first...); err != nil {
		return fmt.Errorf("%w: replace tracks of %s: %w", shared.ErrAPIRequest, playlistID, err)
	}

	for start := len(first); start < len(ids); start += maxItemsPerRequest {
		end := min(start+maxItemsPerRequest, len(ids))
		if err := s.wait(ctx); err != nil {
			return err
		}
		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[start:end]...); err != nil {
			return fmt.Errorf("%w: add tracks to %s: %w", shared.ErrAPIRequest, playlistID, err)
		}
	}

	s.logger.Debug("replaced playlist tracks", "playlist", playlistID, "count", len(ids))
	return nil
}

// SetDescription changes the playlist description.
func (s *SpotifyService) SetDescription(ctx context.Context, playlistID, description string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := s.client.ChangePlaylistDescription(ctx, spotify.ID(playlistID), description); err != nil {
		return fmt.Errorf("%w: change description of %s: %w", shared.ErrAPIRequest, playlistID, err)
	}
	return nil
}

func toPlaylist(sp spotify.SimplePlaylist) models.Playlist {
	return models.Playlist{
		ID:          string(sp.ID),
		Name:        sp.Name,
		Description: sp.Description,
		OwnerID:     sp.Owner.ID,
		TrackCount:  int(sp.Tracks.Total),
		Public:      sp.IsPublic,
	}
}
