// Package repositories implements SQL persistence for the blocklist entities.
//
// Every repository is constructed with a [shared.Dialect] so the few
// statements that differ between SQLite and MySQL (conflict handling on
// insert and upsert) are rendered for the configured driver. Everything else
// is portable SQL with "?" placeholders.
//
// Key Implementations:
//   - [ArtistRepository] : the approved blocklist
//   - [SubmissionRepository] : pending submissions and transactional moderation
//   - [DailySongRepository] : the single song of the day row
package repositories
