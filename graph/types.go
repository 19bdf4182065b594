package graph

import "time"

// EdgeType selects which relation of the social graph is being traversed.
type EdgeType int

const (
	// EdgeFollowing is the outgoing relation: accounts the subject follows.
	EdgeFollowing EdgeType = iota
	// EdgeFollowers is the incoming relation: accounts following the subject.
	EdgeFollowers
)

func (e EdgeType) String() string {
	switch e {
	case EdgeFollowing:
		return "following"
	case EdgeFollowers:
		return "followers"
	default:
		return "unknown"
	}
}

// Cursor is an opaque server-issued pagination token. The empty cursor means
// "first page"; nothing about its contents may be interpreted client-side.
type Cursor string

// Entity is a single account record from the remote graph. Identity is by ID;
// Username is for display and filtering only.
type Entity struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"full_name,omitempty"`
}

// Page is one page of an edge listing.
type Page struct {
	Entities   []Entity
	NextCursor Cursor
	HasMore    bool
}

// Snapshot is a point-in-time capture of both sides of the relationship graph
// for one account. Immutable once produced.
type Snapshot struct {
	Following []Entity
	Followers []Entity
	FetchedAt time.Time

	// Truncated is set when either fetch stopped early on a page failure,
	// making the snapshot a lower bound on the true sets.
	Truncated bool
}
