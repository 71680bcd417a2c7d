package instagram

import (
	"context"
)

// ProfileLookup is the result of resolving a username
type ProfileLookup struct {
	ID        string
	IsPrivate bool
	Found     bool
}

// LookupProfile resolves username to its id and privacy flag.
// The zero ProfileLookup is returned when the upstream call fails or answers
// without data. Otherwise a missing is_private flag is treated as private,
// and Found reports whether an id was present.
func (c *Client) LookupProfile(ctx context.Context, username string) ProfileLookup {
	data := c.Fetch(ctx, c.endpoints.UserInfo(username)).Data()
	if data.Empty() {
		return ProfileLookup{}
	}

	var user UserLookup
	data.Into("id", &user.ID)
	data.Into("is_private", &user.IsPrivate)

	lookup := ProfileLookup{
		ID:        string(user.ID),
		IsPrivate: true,
	}
	if user.IsPrivate != nil {
		lookup.IsPrivate = *user.IsPrivate
	}
	lookup.Found = lookup.ID != ""
	return lookup
}

// FetchContact returns profile metadata for userID. The zero value is
// returned when the call fails.
func (c *Client) FetchContact(ctx context.Context, userID string) ContactUser {
	var contact ContactData
	c.Fetch(ctx, c.endpoints.UserContact(userID)).Into("data", &contact)
	return contact.User
}
