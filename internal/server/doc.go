// Package server runs the short-lived local HTTP server that receives the OAuth2 authorization callback.
//
// # Callback Flow
//
// The auth command starts a [CallbackServer] on the host and port of the configured redirect URI,
// opens the authorization URL in a browser and waits for [CallbackServer.Wait] to return a token.
//
// [CallbackHandler] validates the state parameter (CSRF protection), exchanges the authorization code
// for tokens and sends the result through a channel. It only processes one callback.
//
// # Routing
//
// [Router] wraps [http.ServeMux] with a [Middleware] stack. Middleware is applied in reverse order
// (last added executes first). [LogRequests] logs each request with [log.Logger].
package server
