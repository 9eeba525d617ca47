// Package tasks keeps "top tracks" playlists in sync with the user's Spotify listening history.
//
// # Sync
//
// [Syncer.Run] processes each [models.Target] in order:
//
//  1. Fetch the top tracks for the target's time range
//  2. Resolve the caller's playlist with the exact target name, or create it
//  3. Replace the playlist's items with the fetched tracks, in rank order
//  4. Stamp the description with the generation time
//
// The library is listed once per run; playlists created during the run are added to that listing
// so two targets sharing a name never create duplicates.
//
// Targets are independent. A failing target is recorded in its [TargetResult] and the run continues;
// [SyncResult.Err] joins every failure.
//
// # Progress Reporting
//
// Progress is reported over an optional channel of [ProgressUpdate]. Sends never block.
package tasks
