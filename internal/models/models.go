// package models defines the data model for the top tracks playlist generator
package models

import (
	"fmt"
	"strings"
)

// TimeRange is Spotify's classification of listening-history windows.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"  // ~4 weeks
	MediumTerm TimeRange = "medium_term" // ~6 months
	LongTerm   TimeRange = "long_term"   // several years
)

// MaxTopTracks is the largest page the top tracks endpoint returns.
const MaxTopTracks = 50

// TimeRanges lists every supported [TimeRange] in ascending window length.
func TimeRanges() []TimeRange {
	return []TimeRange{ShortTerm, MediumTerm, LongTerm}
}

// Valid reports whether r is one of the supported ranges.
func (r TimeRange) Valid() bool {
	switch r {
	case ShortTerm, MediumTerm, LongTerm:
		return true
	}
	return false
}

// Label returns a human readable description of the window.
func (r TimeRange) Label() string {
	switch r {
	case ShortTerm:
		return "last month"
	case MediumTerm:
		return "last 6 months"
	case LongTerm:
		return "all time"
	}
	return string(r)
}

// ParseTimeRange converts s (case-insensitive, "-" or "_" separated) to a [TimeRange].
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !r.Valid() {
		return "", fmt.Errorf("unknown time range %q (want one of %v)", s, TimeRanges())
	}
	return r, nil
}

// Track represents a ranked track from the user's listening history
type Track struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Rank   int    `json:"rank"` // 1-based position in the service's ordering
}

// Playlist represents a playlist owned by or visible to the user
type Playlist struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	TrackCount  int
	Public      bool
}

// User represents the authenticated account
type User struct {
	ID          string
	DisplayName string
}

// Target describes one playlist kept in sync with a time range.
type Target struct {
	Range TimeRange
	Name  string
	Limit int
}

func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.Range)
}

// TrackIDs returns the IDs of tracks in order, skipping tracks without one (e.g. local files).
func TrackIDs(tracks []Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
