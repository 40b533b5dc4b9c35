// Package ui implements the monitor dashboard using bubbletea's Elm architecture.
//
// The (view) [Model] shows login state, the monitor's status line and current track, and a filterable
// list of blocked artists. Status updates flow from the monitor's channel into the program as messages.
//
// Keys: m toggles monitoring, r refreshes the blocklist, / searches artists (case-insensitive substring), q quits.
package ui
