package instagram

import (
	"bytes"

	"github.com/goccy/go-json"
)

// FlexString decodes a JSON string or number into a string.
// The upstream is inconsistent about ids: the same field arrives as 123 or "123".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// UserLookup is the data object of the userinfo endpoint
type UserLookup struct {
	ID        FlexString `json:"id"`
	IsPrivate *bool      `json:"is_private"`
}

// ContactData is the data object of the usercontact endpoint
type ContactData struct {
	User ContactUser `json:"user"`
}

// ContactUser holds profile metadata
type ContactUser struct {
	PK             FlexString `json:"pk"`
	FullName       string     `json:"full_name"`
	ProfilePicURL  string     `json:"profile_pic_url"`
	IsPrivate      *bool      `json:"is_private"`
	FollowerCount  int64      `json:"follower_count"`
	FollowingCount int64      `json:"following_count"`
}

// UserNode is a user entry in follower, following and like lists
type UserNode struct {
	ID            FlexString `json:"id"`
	Username      string     `json:"username"`
	ProfilePicURL string     `json:"profile_pic_url"`
}

// UserListPage is one page of followers or following
type UserListPage struct {
	Users []UserNode `json:"user"`
}

// LikesPage is one page of post likes
type LikesPage struct {
	Likes []struct {
		Node UserNode `json:"node"`
	} `json:"likes"`
}

// PostsPage is one page of timeline posts
type PostsPage struct {
	Edges []struct {
		Node PostNode `json:"node"`
	} `json:"edges"`
}

// PostNode is a timeline post
type PostNode struct {
	Shortcode        string `json:"shortcode"`
	TakenAtTimestamp int64  `json:"taken_at_timestamp"`
	TakenAt          int64  `json:"taken_at"`
	IsVideo          bool   `json:"is_video"`
	VideoViewCount   int64  `json:"video_view_count"`
	DisplayURL       string `json:"display_url"`
	Caption          struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	Sidecar struct {
		Edges []struct {
			Node struct {
				DisplayURL string `json:"display_url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

// Timestamp returns taken_at_timestamp, falling back to taken_at
func (p PostNode) Timestamp() int64 {
	if p.TakenAtTimestamp != 0 {
		return p.TakenAtTimestamp
	}
	return p.TakenAt
}

// Text returns the first caption text, if any
func (p PostNode) Text() string {
	if len(p.Caption.Edges) == 0 {
		return ""
	}
	return p.Caption.Edges[0].Node.Text
}

// Media returns sidecar image URLs, or the post's own display URL
func (p PostNode) Media() []string {
	var media []string
	for _, edge := range p.Sidecar.Edges {
		media = append(media, edge.Node.DisplayURL)
	}
	if len(media) == 0 {
		media = []string{p.DisplayURL}
	}
	return media
}

// ViewCount is the video view count, zero for photos
func (p PostNode) ViewCount() int64 {
	if !p.IsVideo {
		return 0
	}
	return p.VideoViewCount
}

// ReelsPage is one page of reels
type ReelsPage struct {
	Items []struct {
		Media ReelMedia `json:"media"`
	} `json:"items"`
}

// ReelMedia is a single reel
type ReelMedia struct {
	Code              string `json:"code"`
	TakenAt           int64  `json:"taken_at"`
	PlayCount         *int64 `json:"play_count"`
	FallbackViewCount int64  `json:"view_count"`
	Caption           *struct {
		Text string `json:"text"`
	} `json:"caption"`
	ImageVersions struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
}

// ViewCount returns play_count, falling back to view_count
func (r ReelMedia) ViewCount() int64 {
	if r.PlayCount != nil {
		return *r.PlayCount
	}
	return r.FallbackViewCount
}

// Text returns the caption text, if any
func (r ReelMedia) Text() string {
	if r.Caption == nil {
		return ""
	}
	return r.Caption.Text
}

// Media returns the first image candidate URL
func (r ReelMedia) Media() []string {
	if len(r.ImageVersions.Candidates) == 0 {
		return nil
	}
	return []string{r.ImageVersions.Candidates[0].URL}
}

// CommentsPage is the single page returned by postcomments
type CommentsPage struct {
	Comments []CommentNode `json:"comments"`
	Count    int64         `json:"count"`
}

// CommentNode is a comment, possibly carrying preview replies
type CommentNode struct {
	Text            string `json:"text"`
	CreatedAtUTC    int64  `json:"created_at_utc"`
	HasLikedComment bool   `json:"has_liked_comment"`
	User            struct {
		PKID          FlexString `json:"pk_id"`
		Username      string     `json:"username"`
		ProfilePicURL string     `json:"profile_pic_url"`
	} `json:"user"`
	PreviewChildComments []CommentNode `json:"preview_child_comments"`
}
