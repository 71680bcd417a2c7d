// Package collector implements the per-stream collectors of a profile
// analysis. Every collector degrades to its zero value when the upstream
// cannot be reached or answers with something unusable.
package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"igaggregator/pkg/cache"
	"igaggregator/pkg/config"
	"igaggregator/pkg/instagram"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
	"igaggregator/pkg/models"
	"igaggregator/pkg/paginate"
)

// Upstream is the part of the request executor the collectors need
type Upstream interface {
	paginate.Fetcher
	Endpoints() instagram.Endpoints
}

// Collector runs the stream collections for one upstream
type Collector struct {
	upstream          Upstream
	pager             *paginate.Paginator
	budgets           config.AnalysisConfig
	pageSize          int
	enrichConcurrency int
	counts            *cache.Cache[int]
	logger            logger.Logger
}

// New creates a Collector. pageSize is the count requested per page.
func New(upstream Upstream, budgets config.AnalysisConfig, pageSize int, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	concurrency := budgets.EnrichConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Collector{
		upstream:          upstream,
		pager:             paginate.New(upstream, log),
		budgets:           budgets,
		pageSize:          pageSize,
		enrichConcurrency: concurrency,
		logger:            log.WithField("component", "collector"),
	}
}

// SetCountCache memoizes the tagged and highlights counts per user id
func (c *Collector) SetCountCache(counts *cache.Cache[int]) {
	c.counts = counts
}

// Followers collects the users following userID
func (c *Collector) Followers(ctx context.Context, userID string) []models.Follower {
	return c.users(ctx, "followers", c.upstream.Endpoints().Followers(userID, c.pageSize))
}

// Following collects the users userID follows
func (c *Collector) Following(ctx context.Context, userID string) []models.Follower {
	return c.users(ctx, "following", c.upstream.Endpoints().Following(userID, c.pageSize))
}

func (c *Collector) users(ctx context.Context, stream, template string) []models.Follower {
	res := paginate.Collect(ctx, c.pager, paginate.Request[models.Follower]{
		Stream:   stream,
		Template: template,
		Cursor:   instagram.InitialOffset,
		PageSize: c.pageSize,
		Budget:   c.budgets.MaxFollowersAndFollows,
		Extract:  extractFollowers,
		Key:      func(f models.Follower) string { return f.Username },
	})
	return nonNil(res.Items)
}

// Posts collects timeline posts with their likes and comments, and the
// totals over the collected posts
func (c *Collector) Posts(ctx context.Context, userID string) ([]models.Post, models.Totals) {
	return c.media(ctx, "posts", c.upstream.Endpoints().Posts(userID, c.pageSize), extractPosts)
}

// Reels collects reels with their likes and comments, and the totals over
// the collected reels
func (c *Collector) Reels(ctx context.Context, userID string) ([]models.Post, models.Totals) {
	return c.media(ctx, "reels", c.upstream.Endpoints().Reels(userID, c.pageSize), extractReels)
}

func (c *Collector) media(ctx context.Context, stream, template string, extract func(instagram.Body) ([]models.Post, string)) ([]models.Post, models.Totals) {
	res := paginate.Collect(ctx, c.pager, paginate.Request[models.Post]{
		Stream:   stream,
		Template: template,
		Cursor:   instagram.InitialCursor,
		PageSize: c.pageSize,
		Budget:   c.budgets.MaxPostsAndReels,
		Extract:  extract,
		Key:      func(p models.Post) string { return p.Shortcode },
		Enrich:   c.enrich,
	})

	var totals models.Totals
	for _, p := range res.Items {
		totals = totals.Add(p.Totals())
	}
	return nonNil(res.Items), totals
}

// enrich fetches likes and comments for each post of a page, at most
// enrichConcurrency posts at a time. Order is preserved.
func (c *Collector) enrich(ctx context.Context, posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	var g errgroup.Group
	g.SetLimit(c.enrichConcurrency)

	for i := range posts {
		g.Go(func() error {
			post := posts[i]
			post.Likes = c.Likes(ctx, post.Shortcode)
			post.LikesCount = int64(len(post.Likes))
			post.Comments, post.CommentsCount = c.Comments(ctx, post.Shortcode)
			out[i] = post
			return nil
		})
	}
	g.Wait()
	return out
}

// Likes collects the users who liked the post, capped at the likes budget
func (c *Collector) Likes(ctx context.Context, shortcode string) []models.Like {
	if shortcode == "" {
		return []models.Like{}
	}
	res := paginate.Collect(ctx, c.pager, paginate.Request[models.Like]{
		Stream:   "likes",
		Template: c.upstream.Endpoints().PostLikes(shortcode, c.pageSize),
		Cursor:   instagram.InitialCursor,
		PageSize: c.pageSize,
		Budget:   c.budgets.MaxLikesAndComments,
		Extract:  extractLikes,
		Key:      func(l models.Like) string { return l.Username },
	})
	return nonNil(res.Items)
}

// Comments fetches the single page of comments the upstream serves for a
// post. Commenters are deduplicated by username across top-level comments
// and preview replies. The second result is the upstream's total count.
func (c *Collector) Comments(ctx context.Context, shortcode string) ([]models.Comment, int64) {
	if shortcode == "" {
		return []models.Comment{}, 0
	}
	body := c.upstream.Fetch(ctx, c.upstream.Endpoints().PostComments(shortcode))
	metrics.StreamPages.WithLabelValues("comments").Inc()

	var page instagram.CommentsPage
	if !body.Into("data", &page) {
		return []models.Comment{}, 0
	}

	comments := make([]models.Comment, 0, len(page.Comments))
	seen := make(map[string]struct{})
	add := func(node instagram.CommentNode) {
		if _, dup := seen[node.User.Username]; dup {
			return
		}
		seen[node.User.Username] = struct{}{}
		comments = append(comments, toComment(node))
	}
	for _, node := range page.Comments {
		add(node)
		for _, child := range node.PreviewChildComments {
			add(child)
		}
	}

	metrics.StreamItems.WithLabelValues("comments").Observe(float64(len(comments)))
	return comments, page.Count
}

// TaggedCount returns how many posts userID is tagged in, as served by the
// single tagged-posts page
func (c *Collector) TaggedCount(ctx context.Context, userID string) int {
	return c.count(ctx, "tagged:"+userID, func(ctx context.Context) (int, error) {
		data := c.upstream.Fetch(ctx, c.upstream.Endpoints().TaggedPosts(userID)).Data()
		if data.Empty() {
			return 0, fmt.Errorf("no tagged posts data for %s", userID)
		}
		return data.Len("edges"), nil
	})
}

// HighlightsCount returns the number of members of the highlights data
// object
func (c *Collector) HighlightsCount(ctx context.Context, userID string) int {
	return c.count(ctx, "highlights:"+userID, func(ctx context.Context) (int, error) {
		body := c.upstream.Fetch(ctx, c.upstream.Endpoints().Highlights(userID))
		if body.Empty() {
			return 0, fmt.Errorf("no highlights data for %s", userID)
		}
		return body.Len("data"), nil
	})
}

func (c *Collector) count(ctx context.Context, key string, fetch func(ctx context.Context) (int, error)) int {
	var n int
	var err error
	if c.counts != nil {
		n, err = c.counts.GetOrCompute(ctx, key, fetch)
	} else {
		n, err = fetch(ctx)
	}
	if err != nil {
		c.logger.DebugWithFields("count unavailable", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return 0
	}
	return n
}

func extractFollowers(body instagram.Body) ([]models.Follower, string) {
	data := body.Data()
	var page instagram.UserListPage
	data.Into("user", &page.Users)

	followers := make([]models.Follower, 0, len(page.Users))
	for _, u := range page.Users {
		followers = append(followers, models.Follower{
			Username:    u.Username,
			IconURL:     u.ProfilePicURL,
			ProfileLink: instagram.ProfileLink(u.Username),
		})
	}
	return followers, data.Cursor()
}

func extractLikes(body instagram.Body) ([]models.Like, string) {
	data := body.Data()
	var page instagram.LikesPage
	data.Into("likes", &page.Likes)

	likes := make([]models.Like, 0, len(page.Likes))
	for _, l := range page.Likes {
		likes = append(likes, models.Like{
			ID:          string(l.Node.ID),
			Username:    l.Node.Username,
			IconURL:     l.Node.ProfilePicURL,
			ProfileLink: instagram.ProfileLink(l.Node.Username),
		})
	}
	return likes, data.Cursor()
}

func extractPosts(body instagram.Body) ([]models.Post, string) {
	data := body.Data()
	var page instagram.PostsPage
	data.Into("edges", &page.Edges)

	posts := make([]models.Post, 0, len(page.Edges))
	for _, e := range page.Edges {
		n := e.Node
		posts = append(posts, models.Post{
			Shortcode: n.Shortcode,
			PostURL:   instagram.PostURL(n.Shortcode),
			PostDate:  unixUTC(n.Timestamp()),
			ViewCount: n.ViewCount(),
			Media:     n.Media(),
			Text:      n.Text(),
		})
	}
	return posts, data.Cursor()
}

func extractReels(body instagram.Body) ([]models.Post, string) {
	data := body.Data()
	var page instagram.ReelsPage
	data.Into("items", &page.Items)

	reels := make([]models.Post, 0, len(page.Items))
	for _, item := range page.Items {
		m := item.Media
		reels = append(reels, models.Post{
			Shortcode: m.Code,
			PostURL:   instagram.ReelURL(m.Code),
			PostDate:  unixUTC(m.TakenAt),
			ViewCount: m.ViewCount(),
			Media:     m.Media(),
			Text:      m.Text(),
		})
	}
	return reels, data.Cursor()
}

func toComment(node instagram.CommentNode) models.Comment {
	return models.Comment{
		ID:              string(node.User.PKID),
		Date:            unixUTC(node.CreatedAtUTC),
		HasLikedComment: node.HasLikedComment,
		Text:            node.Text,
		Username:        node.User.Username,
		IconURL:         node.User.ProfilePicURL,
		ProfileLink:     instagram.ProfileLink(node.User.Username),
	}
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
