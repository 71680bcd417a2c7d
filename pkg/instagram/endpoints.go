package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the upstream data API root
	DefaultBaseURL = "https://api.com"

	// PublicURL is the root used for links placed in reports
	PublicURL = "https://instagram.com"

	// CursorPlaceholder is substituted with the current cursor by the paginator
	CursorPlaceholder = "{cursor}"

	// InitialCursor is the literal first-page cursor the upstream expects on
	// cursor-paged media endpoints
	InitialCursor = "%7Bend_cursor%7D"

	// InitialOffset is the first-page cursor for follower lists
	InitialOffset = "0"

	// TaggedPageSize is the fixed page size of the tagged posts endpoint
	TaggedPageSize = 100
)

// Endpoints builds upstream URLs relative to a base URL.
// Paged templates keep CursorPlaceholder in the path and are filled with Fill.
type Endpoints struct {
	base string
}

// NewEndpoints creates an Endpoints rooted at base (trailing slashes trimmed)
func NewEndpoints(base string) Endpoints {
	if base == "" {
		base = DefaultBaseURL
	}
	return Endpoints{base: strings.TrimRight(base, "/")}
}

// Base returns the root URL
func (e Endpoints) Base() string {
	return e.base
}

// UserInfo resolves a username to its id and privacy flag
func (e Endpoints) UserInfo(username string) string {
	return fmt.Sprintf("%s/userinfo/%s", e.base, url.PathEscape(username))
}

// UserContact returns profile metadata for a user id
func (e Endpoints) UserContact(userID string) string {
	return fmt.Sprintf("%s/usercontact/%s", e.base, userID)
}

// Followers is the paged followers template
func (e Endpoints) Followers(userID string, pageSize int) string {
	return fmt.Sprintf("%s/userfollowers/%s/%d/%s", e.base, userID, pageSize, CursorPlaceholder)
}

// Following is the paged following template
func (e Endpoints) Following(userID string, pageSize int) string {
	return fmt.Sprintf("%s/userfollowing/%s/%d/%s", e.base, userID, pageSize, CursorPlaceholder)
}

// Posts is the paged timeline posts template
func (e Endpoints) Posts(userID string, pageSize int) string {
	return fmt.Sprintf("%s/userposts/%s/%d/%s", e.base, userID, pageSize, CursorPlaceholder)
}

// Reels is the paged reels template
func (e Endpoints) Reels(userID string, pageSize int) string {
	return fmt.Sprintf("%s/userreels/%s/%d/%s", e.base, userID, pageSize, CursorPlaceholder)
}

// PostLikes is the paged likes template for one post
func (e Endpoints) PostLikes(shortcode string, pageSize int) string {
	return fmt.Sprintf("%s/postlikes/%s/%d/%s", e.base, shortcode, pageSize, CursorPlaceholder)
}

// PostComments returns the single-page comments URL for one post
func (e Endpoints) PostComments(shortcode string) string {
	return fmt.Sprintf("%s/postcomments/%s/%%7Bend_cursor%%7D/%%7Bscraperid%%7D", e.base, shortcode)
}

// TaggedPosts returns the single-page tagged posts URL
func (e Endpoints) TaggedPosts(userID string) string {
	return fmt.Sprintf("%s/usertaggedposts/%s/%d/%s", e.base, userID, TaggedPageSize, InitialCursor)
}

// Highlights returns the highlights URL
func (e Endpoints) Highlights(userID string) string {
	return fmt.Sprintf("%s/userhighlights/%s", e.base, userID)
}

// Fill substitutes cursor into a paged template. The cursor is inserted as is;
// upstream cursors are already path safe.
func Fill(template, cursor string) string {
	return strings.Replace(template, CursorPlaceholder, cursor, 1)
}

// EndpointName returns the first path segment of an upstream URL, used as a
// low-cardinality metrics label
func EndpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "unknown"
	}
	return path
}

// ProfileLink is the public profile URL for username
func ProfileLink(username string) string {
	return fmt.Sprintf("%s/%s", PublicURL, username)
}

// PostURL is the public URL of a timeline post
func PostURL(shortcode string) string {
	return fmt.Sprintf("%s/p/%s", PublicURL, shortcode)
}

// ReelURL is the public URL of a reel
func ReelURL(code string) string {
	return fmt.Sprintf("%s/tv/%s", PublicURL, code)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, a profile URL prefix and trailing
// slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://www.instagram.com/", "https://instagram.com/", "instagram.com/"} {
		username = strings.TrimPrefix(username, prefix)
	}
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
