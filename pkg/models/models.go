// Package models holds the domain types a profile analysis produces.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Follower is an entry of the followers or following list
type Follower struct {
	Username    string `json:"username"`
	IconURL     string `json:"icon_url"`
	ProfileLink string `json:"profile_link"`
}

// Like is a user who liked a post
type Like struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IconURL     string `json:"icon_url"`
	ProfileLink string `json:"profile_link"`
}

// Comment is a top-level comment or a preview reply
type Comment struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	HasLikedComment bool      `json:"has_liked_comment"`
	Text            string    `json:"text"`
	Username        string    `json:"username"`
	IconURL         string    `json:"icon_url"`
	ProfileLink     string    `json:"profile_link"`
}

// Post is a timeline post or a reel, enriched with its likes and comments
type Post struct {
	Shortcode     string    `json:"shortcode"`
	Likes         []Like    `json:"likes"`
	Comments      []Comment `json:"comments"`
	PostURL       string    `json:"post_url"`
	PostDate      time.Time `json:"post_date"`
	ViewCount     int64     `json:"view_count"`
	Media         []string  `json:"media"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	Text          string    `json:"text"`
}

// Totals returns the post's contribution to the running totals
func (p Post) Totals() Totals {
	return Totals{
		Likes:    p.LikesCount,
		Comments: p.CommentsCount,
		Views:    p.ViewCount,
	}
}

// Totals are the engagement counters summed over a set of posts
type Totals struct {
	Likes    int64 `json:"likes_count"`
	Comments int64 `json:"comments_count"`
	Views    int64 `json:"views_count"`
}

// Add returns the sum of t and o
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Likes:    t.Likes + o.Likes,
		Comments: t.Comments + o.Comments,
		Views:    t.Views + o.Views,
	}
}

// ProfileMetadata is the descriptive part of a profile
type ProfileMetadata struct {
	FullName       string
	IconURL        string
	FollowersCount int64
	FollowsCount   int64
}

// ProfileReport is the full result of one analysis
type ProfileReport struct {
	ID             string     `json:"id"`
	ProfileLink    string     `json:"profile_link"`
	Username       string     `json:"username"`
	FullName       string     `json:"full_name"`
	FollowersCount int64      `json:"followers_count"`
	FollowsCount   int64      `json:"follows_count"`
	IconURL        string     `json:"icon_url"`
	Data           ReportData `json:"data"`
}

// ReportData carries the collected streams and their totals
type ReportData struct {
	PostsCount      int        `json:"posts_count"`
	CommentsCount   int64      `json:"comments_count"`
	ViewsCount      int64      `json:"views_count"`
	LikesCount      int64      `json:"likes_count"`
	Followers       []Follower `json:"followers"`
	Following       []Follower `json:"following"`
	Posts           []Post     `json:"posts"`
	TaggedCount     int        `json:"taggets_count"`
	HighlightsCount int        `json:"highlights_count"`
}

// IsEmpty reports whether the report describes no profile at all
func (r ProfileReport) IsEmpty() bool {
	return r.ID == ""
}

// MarshalJSON encodes an empty report as {}
func (r ProfileReport) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("{}"), nil
	}
	type report ProfileReport
	return json.Marshal(report(r))
}
