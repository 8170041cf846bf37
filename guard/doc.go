// Package guard decides which screens may be shown for a session.
//
// Protected screens render only for an authenticated session. While the
// session is still loading they render nothing and wait; once it resolves
// unauthenticated the guard redirects to the login screen. The guard
// subscribes to the session, so a session that ends while a protected screen
// is shown triggers the redirect without being polled.
package guard
