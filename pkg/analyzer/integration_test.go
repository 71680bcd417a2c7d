package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"igaggregator/internal/upstreamtest"
	"igaggregator/pkg/config"
	"igaggregator/pkg/errors"
	"igaggregator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaCursor = "%7Bend_cursor%7D"

func newUpstreamAnalyzer(t *testing.T, mutate func(cfg *config.Config)) (*Analyzer, *upstreamtest.Server) {
	t.Helper()
	srv := upstreamtest.New()
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Keys = []string{"key-one", "key-two", "key-three"}
	cfg.API.BaseURL = srv.URL()
	cfg.API.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerSecond = 0
	if mutate != nil {
		mutate(cfg)
	}

	a, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, srv
}

func TestNew_RequiresKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keys = nil

	_, err := New(cfg, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestAnalyze_FollowersScenario(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, nil)
	srv.Handle("/userinfo/nasa", upstreamtest.UserInfo("123", false))
	srv.Handle("/usercontact/123", upstreamtest.Contact("123", "NASA", "https://cdn.test/nasa.jpg", 98, 7))
	srv.Handle("/userfollowers/123/50/0", upstreamtest.Users("", "alice", "bob"))

	report, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)

	assert.Len(t, report.Data.Followers, 2)
	assert.Equal(t, "NASA", report.FullName)
	assert.Equal(t, int64(98), report.FollowersCount)
	assert.Equal(t, int64(7), report.FollowsCount)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "is_private")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, field := range []string{"id", "profile_link", "username", "full_name", "followers_count", "follows_count", "icon_url", "data"} {
		assert.Contains(t, decoded, field)
	}
	data := decoded["data"].(map[string]interface{})
	for _, field := range []string{"posts_count", "comments_count", "views_count", "likes_count", "followers", "following", "posts", "taggets_count", "highlights_count"} {
		assert.Contains(t, data, field)
	}
}

func TestAnalyze_PrivateScenarioIssuesNoStreamRequests(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, nil)
	srv.Handle("/userinfo/secret", upstreamtest.Data(map[string]interface{}{"is_private": true}))

	_, err := a.Analyze(context.Background(), "secret")

	assert.True(t, errors.IsPrivate(err))
	assert.Equal(t, []string{"userinfo"}, srv.Endpoints())
	assert.Equal(t, 1, srv.RequestCount())
}

func TestAnalyze_PostsBudgetScenario(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, func(cfg *config.Config) {
		cfg.Analysis.MaxPostsAndReels = 50
	})
	srv.Handle("/userinfo/nasa", upstreamtest.UserInfo("123", false))
	srv.Handle("/userposts/123/50/"+mediaCursor, upstreamtest.Posts("next", upstreamtest.Post{Shortcode: "P1", TakenAt: 10}))
	srv.Handle("/userposts/123/50/next", upstreamtest.Posts("", upstreamtest.Post{Shortcode: "P2", TakenAt: 5}))

	report, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)

	assert.Equal(t, 1, srv.EndpointCount("userposts"))
	assert.Equal(t, 1, report.Data.PostsCount)
}

func TestAnalyze_FullProfile(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, nil)
	srv.Handle("/userinfo/nasa", upstreamtest.UserInfo("123", false))
	srv.Handle("/usercontact/123", upstreamtest.Contact("123", "NASA", "", 1, 2))
	srv.Handle("/userposts/123/50/"+mediaCursor, upstreamtest.Posts("",
		upstreamtest.Post{Shortcode: "P1", TakenAt: 100, IsVideo: true, Views: 40},
	))
	srv.Handle("/userreels/123/50/"+mediaCursor, upstreamtest.Reels("",
		upstreamtest.Reel{Code: "R1", TakenAt: 200, PlayCount: 60},
	))
	srv.Handle("/postlikes/P1/50/"+mediaCursor, upstreamtest.Likes("", "x", "y"))
	srv.Handle("/postlikes/R1/50/"+mediaCursor, upstreamtest.Likes("", "z"))
	srv.Handle("/postcomments/R1/%7Bend_cursor%7D/%7Bscraperid%7D", upstreamtest.Comments(3,
		upstreamtest.Comment{Username: "x"},
	))
	srv.Handle("/userfollowing/123/50/0", upstreamtest.Users("", "esa"))
	srv.Handle("/usertaggedposts/123/100/"+mediaCursor, upstreamtest.Tagged(5))
	srv.Handle("/userhighlights/123", upstreamtest.Highlights(2))

	report, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)

	require.Len(t, report.Data.Posts, 2)
	assert.Equal(t, "R1", report.Data.Posts[0].Shortcode)
	assert.Equal(t, "P1", report.Data.Posts[1].Shortcode)
	assert.Equal(t, int64(3), report.Data.LikesCount)
	assert.Equal(t, int64(3), report.Data.CommentsCount)
	assert.Equal(t, int64(100), report.Data.ViewsCount)
	assert.Empty(t, report.Data.Followers)
	assert.Len(t, report.Data.Following, 1)
	assert.Equal(t, 5, report.Data.TaggedCount)
	assert.Equal(t, 2, report.Data.HighlightsCount)

	// keys rotate over every request
	keys := srv.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.Contains(t, []string{"key-one", "key-two", "key-three"}, k)
	}

	// served from the report cache the second time
	before := srv.RequestCount()
	_, err = a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, before, srv.RequestCount())
}

func TestAnalyze_UpstreamDownYieldsEmptyReport(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, nil)
	srv.SetFallback(503)

	report, err := a.Analyze(context.Background(), "nasa")

	require.NoError(t, err)
	assert.True(t, report.IsEmpty())
}

func TestAnalyze_TopLevelStreamsRunConcurrently(t *testing.T) {
	a, srv := newUpstreamAnalyzer(t, nil)
	srv.Handle("/userinfo/nasa", upstreamtest.UserInfo("123", false))
	srv.Handle("/usercontact/123", upstreamtest.Contact("123", "NASA", "", 1, 2))
	srv.Handle("/userfollowers/123/50/0", upstreamtest.Users("", "alice"))

	streams := []string{
		"usercontact", "userposts", "userreels", "userfollowers",
		"userfollowing", "usertaggedposts", "userhighlights",
	}
	for _, endpoint := range streams {
		srv.SetEndpointDelay(endpoint, 200*time.Millisecond)
	}

	report, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "NASA", report.FullName)

	for _, endpoint := range streams {
		assert.Equal(t, 1, srv.EndpointCount(endpoint), endpoint)
	}
	assert.Equal(t, len(streams), srv.PeakInFlight(streams...))
}
