// Package server provides HTTP routing, middleware, and the handlers behind onair's local endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs outermost. Routes only pick up middleware registered before them.
//
// [BasicRouter] registers method-qualified [http.ServeMux] patterns ("GET /metrics"), so the mux answers
// wrong methods with 405 and an Allow header.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow for the broadcast service.
//
// The handler checks the state parameter, exchanges the code with the PKCE verifier
// and sends the result through a channel. Only the first callback is processed.
//
// # Current Usage
//
// `onair auth login` starts a temporary server on the configured host and port, opens the browser,
// waits for the callback and shuts the server down once a token arrives.
//
// `onair watch --metrics` serves Prometheus metrics and a [HealthHandler] snapshot of the program state
// through [Serve] until interrupted.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
