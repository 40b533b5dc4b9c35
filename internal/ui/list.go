package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/skipper/internal/models"
)

var _ list.Item = artistItem{}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string { return i.artist.SpotifyURL() }

// artistItems converts the visible artists to list items.
func artistItems(artists []models.Artist) []list.Item {
	visible := models.VisibleArtists(artists)
	items := make([]list.Item, len(visible))
	for i, a := range visible {
		items[i] = artistItem{artist: a}
	}
	return items
}

// substringFilter is a [list.FilterFunc] matching a case-insensitive
// substring, keeping the original order.
func substringFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(strings.TrimSpace(term))

	var ranks []list.Rank
	for i, target := range targets {
		if term == "" {
			ranks = append(ranks, list.Rank{Index: i})
			continue
		}

		// Lowercasing can change byte lengths, so match rune indexes.
		runes := []rune(strings.ToLower(target))
		needle := []rune(term)
		if at := runeIndex(runes, needle); at >= 0 {
			matched := make([]int, len(needle))
			for j := range needle {
				matched[j] = at + j
			}
			ranks = append(ranks, list.Rank{Index: i, MatchedIndexes: matched})
		}
	}
	return ranks
}

func runeIndex(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}
