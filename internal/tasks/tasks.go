// package tasks implements the top tracks playlist sync.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/services"
	"github.com/desertthunder/toptracks/internal/shared"
)

// DescriptionLayout formats the generation time written to playlist descriptions.
const DescriptionLayout = "2006-01-02 15:04"

// TargetResult records the outcome of syncing one target.
type TargetResult struct {
	Target   models.Target
	Playlist *models.Playlist // Resolved or created playlist (nil if resolution failed)
	Created  bool             // Whether the playlist was created during this run
	Tracks   []models.Track   // Top tracks as fetched, in rank order
	Err      error
}

// SyncResult aggregates per-target results of a run.
type SyncResult struct {
	User    *models.User
	Results []TargetResult
	DryRun  bool
}

// Failed returns the results whose target failed.
func (r *SyncResult) Failed() []TargetResult {
	var failed []TargetResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins the errors of every failed target, or returns nil.
func (r *SyncResult) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Target, res.Err))
	}
	return errors.Join(errs...)
}

// Syncer replaces playlists with the user's top tracks.
type Syncer struct {
	service services.Service
	logger  *log.Logger
	now     func() time.Time
	public  bool
	dryRun  bool
}

// SyncOpts contains configuration options for creating a Syncer.
type SyncOpts struct {
	Service services.Service
	Logger  *log.Logger
	Now     func() time.Time // Clock used for descriptions, defaults to [time.Now]
	Public  bool             // Visibility of created playlists
	DryRun  bool             // Fetch and resolve only, never mutate playlists
}

// NewSyncer creates a new Syncer with the provided options.
func NewSyncer(opts SyncOpts) *Syncer {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Syncer{
		service: opts.Service,
		logger:  opts.Logger,
		now:     opts.Now,
		public:  opts.Public,
		dryRun:  opts.DryRun,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Syncer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Description returns the playlist description for a run at t.
func Description(t time.Time) string {
	return "Generated: " + t.Format(DescriptionLayout)
}

// Run syncs every target in order.
//
// Failing to load the user or the playlist library aborts the run with an error. Failures of individual
// targets are recorded in the result instead, so every target is attempted; use [SyncResult.Err] to
// check for them.
func (s *Syncer) Run(ctx context.Context, targets []models.Target, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if s.service == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", shared.ErrInvalidArgument)
	}

	total := len(targets)
	result := &SyncResult{DryRun: s.dryRun}

	s.sendProgress(progress, fetchUserUpdate(total))
	user, err := s.service.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	result.User = user

	s.sendProgress(progress, fetchPlaylistsUpdate(total))
	library, err := s.service.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(s.logger, "user", user.ID)
	logger.Debug("loaded library", "playlists", len(library))

	for i, target := range targets {
		step := i + 1
		res := s.syncTarget(ctx, logger, user, &library, target, step, total, progress)
		result.Results = append(result.Results, res)

		if res.Err != nil {
			logger.Error("sync failed", "target", target.Name, "range", target.Range, "error", res.Err)
			s.sendProgress(progress, targetFailedUpdate(step, total, res))
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}
		s.sendProgress(progress, targetDoneUpdate(step, total, res))
	}

	return result, nil
}

// syncTarget fetches, resolves and replaces a single target. Playlists created here are appended to library.
func (s *Syncer) syncTarget(ctx context.Context, logger *log.Logger, user *models.User, library *[]models.Playlist, target models.Target, step, total int, progress chan<- ProgressUpdate) TargetResult {
	res := TargetResult{Target: target}
	logger = shared.WithLogger(logger, "range", target.Range, "playlist", target.Name)

	s.sendProgress(progress, fetchTopTracksUpdate(step, total, target))
	tracks, err := s.service.TopTracks(ctx, target.Range, target.Limit)
	if err != nil {
		res.Err = err
		return res
	}
	res.Tracks = tracks
	ids := models.TrackIDs(tracks)
	if skipped := len(tracks) - len(ids); skipped > 0 {
		logger.Warn("skipping tracks without an ID", "count", skipped)
	}

	description := Description(s.now())

	playlist, matches := Resolve(*library, target.Name, user.ID)
	if matches > 1 {
		logger.Warn("multiple playlists share this name, using the first", "matches", matches, "id", playlist.ID)
	}

	switch {
	case playlist != nil:
		s.sendProgress(progress, resolvePlaylistUpdate(step, total, *playlist))
	case s.dryRun:
		res.Playlist = &models.Playlist{Name: target.Name, OwnerID: user.ID, Public: s.public}
		res.Created = true
		*library = append(*library, *res.Playlist)
		logger.Info("dry run: would create playlist", "tracks", len(ids))
		return res
	default:
		s.sendProgress(progress, createPlaylistUpdate(step, total, target.Name))
		created, err := s.service.CreatePlaylist(ctx, user.ID, target.Name, description, s.public)
		if err != nil {
			res.Err = err
			return res
		}
		*library = append(*library, *created)
		playlist = created
		res.Created = true
		logger.Info("created playlist", "id", created.ID)
	}

	res.Playlist = playlist
	if s.dryRun {
		logger.Info("dry run: would replace tracks", "id", playlist.ID, "current", playlist.TrackCount, "tracks", len(ids))
		return res
	}

	s.sendProgress(progress, replaceTracksUpdate(step, total, target.Name, len(ids)))
	if err := s.service.ReplaceTracks(ctx, playlist.ID, ids); err != nil {
		res.Err = err
		return res
	}

	if !res.Created {
		if err := s.service.SetDescription(ctx, playlist.ID, description); err != nil {
			res.Err = err
			return res
		}
	}

	updated := *playlist
	updated.TrackCount = len(ids)
	updated.Description = description
	res.Playlist = &updated
	for i := range *library {
		if (*library)[i].ID == updated.ID {
			(*library)[i] = updated
		}
	}

	logger.Info("playlist updated", "id", playlist.ID, "tracks", len(ids))
	return res
}

// Resolve returns the first playlist in library named exactly name and owned by ownerID, along with the
// number of playlists that matched. An empty ownerID matches any owner.
func Resolve(library []models.Playlist, name, ownerID string) (*models.Playlist, int) {
	var first *models.Playlist
	matches := 0

	for i := range library {
		p := library[i]
		if p.Name != name {
			continue
		}
		if ownerID != "" && p.OwnerID != "" && p.OwnerID != ownerID {
			continue
		}

		matches++
		if first == nil {
			first = &p
		}
	}

	return first, matches
}
