package analyzer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"igaggregator/pkg/cache"
	"igaggregator/pkg/errors"
	"igaggregator/pkg/instagram"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lookups  map[string]instagram.ProfileLookup
	contact  instagram.ContactUser
	lookedUp int32
}

func (f *fakeSource) LookupProfile(ctx context.Context, username string) instagram.ProfileLookup {
	atomic.AddInt32(&f.lookedUp, 1)
	return f.lookups[username]
}

func (f *fakeSource) FetchContact(ctx context.Context, userID string) instagram.ContactUser {
	return f.contact
}

type fakeStreams struct {
	posts, reels         []models.Post
	followers, following []models.Follower
	tagged, highlights   int
	calls                int32
}

func (f *fakeStreams) hit() { atomic.AddInt32(&f.calls, 1) }

func (f *fakeStreams) Followers(ctx context.Context, userID string) []models.Follower {
	f.hit()
	return f.followers
}

func (f *fakeStreams) Following(ctx context.Context, userID string) []models.Follower {
	f.hit()
	return f.following
}

func (f *fakeStreams) Posts(ctx context.Context, userID string) ([]models.Post, models.Totals) {
	f.hit()
	return f.posts, models.Totals{}
}

func (f *fakeStreams) Reels(ctx context.Context, userID string) ([]models.Post, models.Totals) {
	f.hit()
	return f.reels, models.Totals{}
}

func (f *fakeStreams) TaggedCount(ctx context.Context, userID string) int {
	f.hit()
	return f.tagged
}

func (f *fakeStreams) HighlightsCount(ctx context.Context, userID string) int {
	f.hit()
	return f.highlights
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func publicSource() *fakeSource {
	return &fakeSource{
		lookups: map[string]instagram.ProfileLookup{
			"nasa":   {ID: "123", Found: true},
			"secret": {ID: "456", IsPrivate: true, Found: true},
			"flag":   {IsPrivate: true},
		},
		contact: instagram.ContactUser{
			FullName:       "NASA",
			ProfilePicURL:  "https://cdn.test/nasa.jpg",
			FollowerCount:  1000,
			FollowingCount: 10,
		},
	}
}

func TestAnalyze_PrivateProfile(t *testing.T) {
	for _, username := range []string{"secret", "flag"} {
		t.Run(username, func(t *testing.T) {
			streams := &fakeStreams{}
			a := NewAnalyzer(publicSource(), streams, logger.NewNopLogger())

			report, err := a.Analyze(context.Background(), username)

			require.Error(t, err)
			assert.True(t, errors.IsPrivate(err))
			assert.True(t, report.IsEmpty())
			assert.Equal(t, int32(0), atomic.LoadInt32(&streams.calls))
		})
	}
}

func TestAnalyze_UnresolvedProfile(t *testing.T) {
	streams := &fakeStreams{}
	a := NewAnalyzer(publicSource(), streams, logger.NewNopLogger())

	report, err := a.Analyze(context.Background(), "nobody")

	require.NoError(t, err)
	assert.True(t, report.IsEmpty())
	assert.Equal(t, int32(0), atomic.LoadInt32(&streams.calls))
}

func TestAnalyze_AssemblesReport(t *testing.T) {
	streams := &fakeStreams{
		posts: []models.Post{
			{Shortcode: "p-old", PostDate: day(1), LikesCount: 1, CommentsCount: 2, ViewCount: 3},
			{Shortcode: "p-new", PostDate: day(5), LikesCount: 10},
			{Shortcode: "shared", PostDate: day(3), LikesCount: 100},
		},
		reels: []models.Post{
			{Shortcode: "r-mid", PostDate: day(3), ViewCount: 50},
			{Shortcode: "shared", PostDate: day(3), LikesCount: 100},
		},
		followers:  []models.Follower{{Username: "a"}, {Username: "b"}},
		tagged:     4,
		highlights: 2,
	}
	a := NewAnalyzer(publicSource(), streams, logger.NewNopLogger())

	report, err := a.Analyze(context.Background(), "@nasa")
	require.NoError(t, err)

	assert.Equal(t, "123", report.ID)
	assert.Equal(t, "nasa", report.Username)
	assert.Equal(t, "https://instagram.com/nasa", report.ProfileLink)
	assert.Equal(t, "NASA", report.FullName)
	assert.Equal(t, "https://cdn.test/nasa.jpg", report.IconURL)
	assert.Equal(t, int64(1000), report.FollowersCount)
	assert.Equal(t, int64(10), report.FollowsCount)

	var order []string
	for _, p := range report.Data.Posts {
		order = append(order, p.Shortcode)
	}
	// equal dates keep posts-then-reels order
	assert.Equal(t, []string{"p-new", "shared", "r-mid", "p-old"}, order)

	assert.Equal(t, 4, report.Data.PostsCount)
	assert.Equal(t, int64(111), report.Data.LikesCount)
	assert.Equal(t, int64(2), report.Data.CommentsCount)
	assert.Equal(t, int64(53), report.Data.ViewsCount)
	assert.Len(t, report.Data.Followers, 2)
	assert.NotNil(t, report.Data.Following)
	assert.Empty(t, report.Data.Following)
	assert.Equal(t, 4, report.Data.TaggedCount)
	assert.Equal(t, 2, report.Data.HighlightsCount)
	assert.Equal(t, int32(6), atomic.LoadInt32(&streams.calls))
}

func TestAnalyze_CancelledContext(t *testing.T) {
	a := NewAnalyzer(publicSource(), &fakeStreams{}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, "nasa")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_CachesReports(t *testing.T) {
	source := publicSource()
	streams := &fakeStreams{}
	a := NewAnalyzer(source, streams, logger.NewNopLogger())
	a.SetReportCache(cache.New[models.ProfileReport]("reports", 8, time.Minute, logger.NewNopLogger()))

	first, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.lookedUp))

	// private answers are not cached
	for i := 0; i < 2; i++ {
		_, err := a.Analyze(context.Background(), "secret")
		assert.True(t, errors.IsPrivate(err))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&source.lookedUp))
}

func TestAnalyzeMany(t *testing.T) {
	source := publicSource()
	source.lookups["esa"] = instagram.ProfileLookup{ID: "789", Found: true}
	a := NewAnalyzer(source, &fakeStreams{}, logger.NewNopLogger())

	reports, err := a.AnalyzeMany(context.Background(), []string{"nasa", "esa"})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "123", reports[0].ID)
	assert.Equal(t, "789", reports[1].ID)
}

func TestAnalyzeMany_RejectsIdenticalProfiles(t *testing.T) {
	source := publicSource()
	a := NewAnalyzer(source, &fakeStreams{}, logger.NewNopLogger())

	_, err := a.AnalyzeMany(context.Background(), []string{"nasa", "@nasa"})

	assert.ErrorIs(t, err, errors.ErrProfilesAreIdentical)
	assert.Equal(t, int32(0), atomic.LoadInt32(&source.lookedUp))
}

func TestAnalyzeMany_PropagatesPrivate(t *testing.T) {
	a := NewAnalyzer(publicSource(), &fakeStreams{}, logger.NewNopLogger())

	_, err := a.AnalyzeMany(context.Background(), []string{"nasa", "secret"})

	require.Error(t, err)
	assert.True(t, errors.IsPrivate(err))
	assert.Contains(t, err.Error(), "secret")
}

func TestMergeTimeline_Empty(t *testing.T) {
	merged, totals := mergeTimeline(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
	assert.Equal(t, models.Totals{}, totals)
}

func TestAnalyze_UnresolvedProfileIsNotCached(t *testing.T) {
	source := publicSource()
	a := NewAnalyzer(source, &fakeStreams{}, logger.NewNopLogger())
	a.SetReportCache(cache.New[models.ProfileReport]("reports", 8, time.Minute, logger.NewNopLogger()))

	report, err := a.Analyze(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, report.IsEmpty())

	source.lookups["flaky"] = instagram.ProfileLookup{ID: "9", Found: true}

	report, err = a.Analyze(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "9", report.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.lookedUp))
}

func TestAnalyze_ReportWithoutUpstreamDataIsNotCached(t *testing.T) {
	source := publicSource()
	source.contact = instagram.ContactUser{}
	a := NewAnalyzer(source, &fakeStreams{}, logger.NewNopLogger())
	a.SetReportCache(cache.New[models.ProfileReport]("reports", 8, time.Minute, logger.NewNopLogger()))

	report, err := a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "123", report.ID)
	assert.Empty(t, report.Data.Posts)

	_, err = a.Analyze(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.lookedUp))
}
