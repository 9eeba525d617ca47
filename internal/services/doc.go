// Package services defines the [Service] interface used by the playlist syncer and implements it for the Spotify Web API.
//
// # Service Interface
//
// [Service] covers exactly the calls a sync needs: the current user, ranked top tracks, the user's
// playlists, playlist creation, full replacement of a playlist's items and its description.
//
// # Spotify Implementation
//
// [SpotifyService] wraps a [spotify.Client] built on an authorized [http.Client]. Requests are paced
// by a client-side rate limiter and never retried.
//
// # Authorization
//
// [Authorizer] hands out an authorized [http.Client]. [OAuthAuthorizer] implements it with the
// authorization code flow:
//   - a cached token is loaded from disk and refreshed by the [oauth2.TokenSource]
//   - refreshed tokens are written back to the cache
//   - without a usable token the browser is opened and a temporary callback server waits for the redirect
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no authorized client
//   - [shared.ErrAuthFailed] : authorization or token refresh failed
//   - [shared.ErrTimeout] : the browser callback never arrived
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrInvalidArgument] : bad range, limit or ID, rejected before any request
package services
