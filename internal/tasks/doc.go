// Package tasks runs background jobs against the Spotify Web API.
//
// # Daily Song
//
// [DailySongSelector] picks the song of the day:
//
//  1. Refreshes an access token from the configured refresh token
//  2. Lists the account's playlists and keeps those named in the config
//  3. Collects every track from the matching playlists, following "next" links
//  4. Picks one at random and upserts it as the singleton daily song row
//
// [DailySongSelector.RunAsync] is what the cron endpoint calls. It runs the
// selection in its own goroutine with its own timeout and only logs failures.
//
// # Progress Reporting
//
// [DailySongSelector.Run] accepts an optional channel of [ProgressUpdate].
// Updates use select with default so reporting never blocks the job.
package tasks
