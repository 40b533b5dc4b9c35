// Package server provides HTTP routing, middleware, the blocklist REST API and
// the loopback OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Global middleware set with Use wraps the whole mux; route middleware passed to Handle wraps a single route.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns such as "DELETE /api/artists/{id}".
//
// # REST API
//
// [API] registers the public and admin endpoints:
//
//	GET    /api/artists              list the blocklist
//	GET    /api/daily-song           song of the day
//	POST   /api/submit               public artist submission (rate limited per client)
//	POST   /api/admin/login          admin token
//	GET    /api/submissions          pending submissions (bearer)
//	POST   /api/submissions/manage   approve or reject (bearer)
//	DELETE /api/artists/{id}         remove an artist (bearer)
//	POST   /run-daily-song-selection cron trigger (X-Cron-Secret)
//
// Errors are JSON bodies of the form {"message": "..."}.
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the Spotify redirect during "skipper auth login".
// It hands state and code to a [CompleteFunc] and sends the result through a channel.
// It only processes one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
