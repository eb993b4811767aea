package core

// Session carries the authorization state of the caller. It is built by the API layer from the
// request's tokens and handed explicitly to services that need it.
type Session struct {
	UserID   string
	Username string
	Email    string
	Roles    []string
	IsAdmin  bool

	// Elevated is set when the caller holds an admin role or a valid elevation token.
	// Updating an already persisted record requires it.
	Elevated bool
}

func (s Session) IsAnonymous() bool {
	return s.UserID == ""
}
