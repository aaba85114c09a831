package types

// Identity names the cart owner: either an anonymous guest scope or an
// authenticated user. A store holds exactly one identity's lines at a time.
type Identity struct {
	userID  string
	guestID string
}

// Guest builds a guest identity from a client-generated id.
func Guest(guestID string) Identity {
	return Identity{guestID: guestID}
}

// User builds an authenticated identity.
func User(userID string) Identity {
	return Identity{userID: userID}
}

// IsUser reports whether the identity is an authenticated user.
func (i Identity) IsUser() bool {
	return i.userID != ""
}

// IsZero reports whether no identity has been resolved.
func (i Identity) IsZero() bool {
	return i.userID == "" && i.guestID == ""
}

// UserID returns the user id, empty for guests.
func (i Identity) UserID() string {
	return i.userID
}

// Scope is the storage partition key for the identity's lines.
func (i Identity) Scope() string {
	if i.IsUser() {
		return "user:" + i.userID
	}
	return "guest:" + i.guestID
}
