// Package apiclient is the HTTP client for the community-safety backend.
//
// Every authenticated request reads the access token from a tokenstore.Store
// and sends it as a bearer credential. A 401 response starts a single
// refresh-and-retry cycle:
//
//	INITIAL -> FAILED_401 -> REFRESHING -> RETRIED
//	                                    \-> ABORTED
//
// The refresh token is exchanged for a new access token, the new token is
// persisted, and the original request is resent exactly once. A request that
// already went through a refresh is never refreshed again. When no refresh
// token is stored, or the refresh call fails, both tokens are removed from
// the store and the session-expired handlers run.
//
// Concurrent 401s that carry the same refresh token share one in-flight
// refresh unless Config.DisableRefreshCoalescing is set.
//
// Errors are *Error values classified by kind; use errors.Is with
// ErrNetworkFailure, ErrAuthFailure, ErrServerError or ErrMalformedResponse.
package apiclient
