// Package server provides HTTP routing, middleware, and the JSON API for the content-rewrite service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering;
// OPTIONS requests skip the filter so CORS preflights reach the middleware stack.
//
// # JSON API
//
// [APIHandler] serves the endpoints backing the browser client:
//
//	POST /api/rewrite → run the rewrite pipeline, charging points on success
//	POST /api/extract → extract caption text from a short-video link
//	GET  /api/points  → current balance, applying any pending daily reset
//	POST /api/signin  → claim the daily sign-in bonus (idempotent per day)
//	GET  /health      → liveness probe
//
// Errors map onto HTTP statuses by class: authentication failures are 401,
// invalid input 400, insufficient balance 402, upstream failures 502, and a
// delivered-but-uncharged rewrite 409 with the content included.
//
// # Workflow Proxy
//
// [ProxyHandler] relays stream_run requests to the upstream workflow API for
// clients whose direct calls are blocked. The Authorization header and body
// pass through untouched; responses are wrapped in a {data} envelope and
// upstream failures mirror the upstream status.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
