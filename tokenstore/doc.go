// Package tokenstore persists the session credentials of the API client.
//
// A Store is a string key-value store with three single-key operations:
// Get, Set and Remove. Values written by Set survive process restarts for
// the persistent backends:
//
//   - SQLStore keeps entries in a local SQLite table through bun.
//   - RedisStore keeps entries in Redis under a key prefix.
//   - MemoryStore keeps entries in process memory and is used by tests.
//
// The well-known keys are KeyAccessToken, KeyRefreshToken, KeyUsername and
// KeyUser. Values are stored as given; tokens are not encrypted and no expiry
// is tracked.
package tokenstore
