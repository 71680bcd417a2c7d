package upstreamtest

import (
	"github.com/goccy/go-json"
)

// Post describes a timeline post fixture
type Post struct {
	Shortcode string
	TakenAt   int64
	IsVideo   bool
	Views     int64
	Caption   string
	Images    []string
}

// Reel describes a reel fixture
type Reel struct {
	Code      string
	TakenAt   int64
	PlayCount int64
	Caption   string
	Image     string
}

// Comment describes a comment fixture with optional preview replies
type Comment struct {
	ID        string
	Username  string
	Text      string
	CreatedAt int64
	Liked     bool
	Replies   []Comment
}

type obj = map[string]interface{}

// Data wraps data in the {"data": ...} envelope
func Data(data interface{}) string {
	raw, err := json.Marshal(obj{"data": data})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// UserInfo is a userinfo answer
func UserInfo(id string, private bool) string {
	return Data(obj{"id": id, "is_private": private})
}

// Contact is a usercontact answer
func Contact(id, fullName, icon string, followers, following int64) string {
	return Data(obj{"user": obj{
		"pk":              id,
		"full_name":       fullName,
		"profile_pic_url": icon,
		"follower_count":  followers,
		"following_count": following,
	}})
}

func withCursor(data obj, next string) obj {
	if next != "" {
		data["end_cursor"] = next
	}
	return data
}

// Users is one followers or following page
func Users(next string, usernames ...string) string {
	users := make([]obj, 0, len(usernames))
	for _, u := range usernames {
		users = append(users, obj{"id": "id-" + u, "username": u, "profile_pic_url": "https://cdn.test/" + u + ".jpg"})
	}
	return Data(withCursor(obj{"user": users}, next))
}

// Likes is one postlikes page
func Likes(next string, usernames ...string) string {
	likes := make([]obj, 0, len(usernames))
	for _, u := range usernames {
		likes = append(likes, obj{"node": obj{"id": "id-" + u, "username": u, "profile_pic_url": "https://cdn.test/" + u + ".jpg"}})
	}
	return Data(withCursor(obj{"likes": likes}, next))
}

// Posts is one userposts page
func Posts(next string, posts ...Post) string {
	edges := make([]obj, 0, len(posts))
	for _, p := range posts {
		node := obj{
			"shortcode":          p.Shortcode,
			"taken_at_timestamp": p.TakenAt,
			"is_video":           p.IsVideo,
			"video_view_count":   p.Views,
			"display_url":        "https://cdn.test/" + p.Shortcode + ".jpg",
			"edge_media_to_caption": obj{"edges": []obj{
				{"node": obj{"text": p.Caption}},
			}},
		}
		if len(p.Images) > 0 {
			children := make([]obj, 0, len(p.Images))
			for _, img := range p.Images {
				children = append(children, obj{"node": obj{"display_url": img}})
			}
			node["edge_sidecar_to_children"] = obj{"edges": children}
		}
		edges = append(edges, obj{"node": node})
	}
	return Data(withCursor(obj{"edges": edges}, next))
}

// Reels is one userreels page
func Reels(next string, reels ...Reel) string {
	items := make([]obj, 0, len(reels))
	for _, r := range reels {
		media := obj{
			"code":       r.Code,
			"taken_at":   r.TakenAt,
			"play_count": r.PlayCount,
			"caption":    obj{"text": r.Caption},
		}
		if r.Image != "" {
			media["image_versions2"] = obj{"candidates": []obj{{"url": r.Image}}}
		}
		items = append(items, obj{"media": media})
	}
	return Data(withCursor(obj{"items": items}, next))
}

// Comments is the postcomments answer
func Comments(count int64, comments ...Comment) string {
	return Data(obj{"comments": commentNodes(comments), "count": count})
}

func commentNodes(comments []Comment) []obj {
	nodes := make([]obj, 0, len(comments))
	for _, c := range comments {
		node := obj{
			"text":              c.Text,
			"created_at_utc":    c.CreatedAt,
			"has_liked_comment": c.Liked,
			"user": obj{
				"pk_id":           c.ID,
				"username":        c.Username,
				"profile_pic_url": "https://cdn.test/" + c.Username + ".jpg",
			},
		}
		if len(c.Replies) > 0 {
			node["preview_child_comments"] = commentNodes(c.Replies)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// Tagged is a usertaggedposts answer with n edges
func Tagged(n int) string {
	edges := make([]obj, n)
	for i := range edges {
		edges[i] = obj{"node": obj{"id": i}}
	}
	return Data(obj{"edges": edges})
}

// Highlights is a userhighlights answer whose data object has n members
func Highlights(n int) string {
	data := obj{}
	for i := 0; i < n; i++ {
		data["tray"+string(rune('a'+i))] = obj{"id": i}
	}
	return Data(data)
}
