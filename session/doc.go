// Package session owns the authenticated state of one user of the backend.
//
// A Manager starts in StateLoading and resolves to StateAuthenticated or
// StateUnauthenticated. Start restores a stored session by fetching the
// profile; Login and SignUp establish a new one; Logout always ends it.
// When the API client gives up on a 401, the manager demotes the session.
//
// Observers receive a Snapshot on every transition, either through Subscribe
// or through the channel returned by Watch.
package session
