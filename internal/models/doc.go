// Package models defines the domain entities shared by the skipper service, its
// HTTP API and the playback monitor.
//
// Persistent entities:
//   - [Artist] : an approved entry on the blocklist
//   - [Submission] : a community proposal awaiting moderation
//   - [DailySong] : the single "song of the day" row
//
// Each persistent entity implements [Model] so repositories can validate
// before writing. [Action] and [ParseSpotifyArtistID] cover the moderation
// and submission inputs.
package models
