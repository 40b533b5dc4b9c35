// Package monitor watches the user's Spotify playback and skips tracks by
// blocked artists.
//
// A [Monitor] is either stopped or monitoring. While monitoring it checks the
// currently playing track immediately and then on every poll interval. A
// check only acts when the track id changes: if any credited artist is in the
// [BlockSet] the track is skipped and playback is checked again shortly
// after, otherwise the new track is announced. The blocklist itself is
// refreshed from the skipper API on a slower interval.
//
// Progress is reported as [StatusUpdate] values on the channel returned by
// [Monitor.Updates]. Sends never block the loop; updates are dropped when
// nobody is reading.
package monitor
