package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/monitor"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStatusUpdate MsgKind = iota
	MsgBlocklistRefreshed
	MsgToggled
)

type blocklistResult struct {
	artists []models.Artist
	err     error
}

// statusUpdateMsg is the constructor for [MsgStatusUpdate]
func statusUpdateMsg(update monitor.StatusUpdate) Msg {
	return Msg{kind: MsgStatusUpdate, data: update}
}

// blocklistRefreshedMsg is the constructor for [MsgBlocklistRefreshed]
func blocklistRefreshedMsg(artists []models.Artist, err error) Msg {
	return Msg{kind: MsgBlocklistRefreshed, data: blocklistResult{artists: artists, err: err}}
}

// toggledMsg is the constructor for [MsgToggled]
func toggledMsg(monitoring bool) Msg {
	return Msg{kind: MsgToggled, data: monitoring}
}
