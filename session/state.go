package session

import "github.com/jonwraymond/guardian/apiclient"

// State is the session lifecycle state.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State    State
	User     *apiclient.User // nil unless authenticated
	Username string
	Version  uint64 // increases with every transition
}

// Authenticated reports whether the snapshot belongs to a signed-in user.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Resolved reports whether the session left StateLoading.
func (s Snapshot) Resolved() bool {
	return s.State != StateLoading
}
