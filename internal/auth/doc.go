// Package auth owns the monitor's client side state: the Spotify tokens, the
// PKCE verifier of an in flight login, the user supplied client id and the
// moderator token.
//
// State lives in a [Session] persisted by a [Store] ([FileStore] writes TOML
// under ~/.skipper). [Manager] implements the token lifecycle on top of it:
// starting and completing a PKCE login, refreshing expired access tokens and
// logging out when a refresh is impossible.
package auth
