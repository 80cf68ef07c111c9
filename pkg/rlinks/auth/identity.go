package auth

// Identity is an authenticated caller, as carried in a verified token.
type Identity struct {
	UserID   uint
	Username string
}

// Owner returns the registered owner for i.
func (i Identity) Owner() Owner {
	return RegisteredOwner(i.UserID)
}

// Owner is who a link belongs to: a registered user or the anonymous owner.
// The zero value is anonymous. Storage translates the anonymous owner to the
// reserved public account; nothing above storage should look that row up.
type Owner struct {
	userID uint
}

// RegisteredOwner returns the owner for a registered user id.
// An id of 0 yields the anonymous owner.
func RegisteredOwner(userID uint) Owner {
	return Owner{userID: userID}
}

// AnonymousOwner returns the owner of links created without a token.
func AnonymousOwner() Owner {
	return Owner{}
}

// UserID returns the registered user id, or false for the anonymous owner.
func (o Owner) UserID() (uint, bool) {
	return o.userID, o.userID != 0
}

func (o Owner) IsAnonymous() bool {
	return o.userID == 0
}

func (o Owner) String() string {
	if o.IsAnonymous() {
		return "anonymous"
	}
	return "user"
}
