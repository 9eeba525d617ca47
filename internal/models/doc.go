// Package models defines the domain entities shared by the Spotify client, the playlist syncer and the CLI.
//
//   - [TimeRange] : Spotify's listening-history window used to rank top tracks
//   - [Track] : a ranked track with its Spotify ID and URI
//   - [Playlist] : playlist metadata resolved from the user's library
//   - [User] : the authenticated Spotify user
//   - [Target] : one playlist to maintain, keyed by time range and name
//
// The package has no dependencies on the rest of the module so it can be imported from configuration, services and tasks alike.
package models
