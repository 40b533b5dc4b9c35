// Package services provides HTTP clients for the two remote systems skipper talks to.
//
//   - [SpotifyService] : the Spotify Web API and accounts service. It builds
//     PKCE authorization URLs, exchanges and refreshes tokens through
//     [golang.org/x/oauth2], and wraps the player, playlist and artist
//     endpoints the monitor and the daily song job need.
//   - [APIService] : a client for the skipper HTTP API itself, used by the
//     monitor to fetch the blocklist and by the CLI for submissions and
//     moderation.
//
// Both clients accept an injected [net/http.Client] and base URL so tests can
// point them at an [net/http/httptest.Server].
package services
