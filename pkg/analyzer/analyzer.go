package analyzer

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"igaggregator/pkg/cache"
	"igaggregator/pkg/errors"
	"igaggregator/pkg/instagram"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
	"igaggregator/pkg/models"
)

// errNoData marks a report assembled without any upstream data. Callers get
// the report with a nil error; the report cache never stores it.
var errNoData = stderrors.New("analysis produced no upstream data")

// Analyzer builds profile reports
type Analyzer struct {
	source  ProfileSource
	streams StreamCollector
	reports *cache.Cache[models.ProfileReport]
	closers []func() error
	logger  logger.Logger
}

// NewAnalyzer creates an Analyzer over a profile source and stream collector
func NewAnalyzer(source ProfileSource, streams StreamCollector, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Analyzer{
		source:  source,
		streams: streams,
		logger:  log.WithField("component", "analyzer"),
	}
}

// SetReportCache memoizes finished reports by username
func (a *Analyzer) SetReportCache(reports *cache.Cache[models.ProfileReport]) {
	a.reports = reports
}

// Close releases the caches' shared stores
func (a *Analyzer) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Analyze returns the report for username.
//
// A private profile yields errors.ErrProfileIsPrivate before any stream is
// requested. A username that cannot be resolved yields an empty report and
// no error. Upstream trouble while collecting degrades the affected streams
// to empty values. The only other error is the context's.
func (a *Analyzer) Analyze(ctx context.Context, username string) (models.ProfileReport, error) {
	username = instagram.SanitizeUsername(username)

	var (
		report models.ProfileReport
		err    error
	)
	if a.reports == nil {
		report, err = a.analyze(ctx, username)
	} else {
		report, err = a.reports.GetOrCompute(ctx, reportKey(username), func(ctx context.Context) (models.ProfileReport, error) {
			return a.analyze(ctx, username)
		})
	}
	if stderrors.Is(err, errNoData) {
		return report, nil
	}
	return report, err
}

// AnalyzeMany analyzes several distinct profiles concurrently. Reports are
// returned in input order. Repeating a username is rejected with
// errors.ErrProfilesAreIdentical before anything is requested.
func (a *Analyzer) AnalyzeMany(ctx context.Context, usernames []string) ([]models.ProfileReport, error) {
	seen := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		u = instagram.SanitizeUsername(u)
		if _, dup := seen[u]; dup {
			return nil, fmt.Errorf("%q: %w", u, errors.ErrProfilesAreIdentical)
		}
		seen[u] = struct{}{}
	}

	reports := make([]models.ProfileReport, len(usernames))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range usernames {
		g.Go(func() error {
			report, err := a.Analyze(gctx, u)
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *Analyzer) analyze(ctx context.Context, username string) (models.ProfileReport, error) {
	start := time.Now()
	log := a.logger.WithField("username", username)

	lookup := a.source.LookupProfile(ctx, username)
	if lookup.IsPrivate {
		metrics.AnalysesTotal.WithLabelValues("private").Inc()
		log.Info("profile is private")
		return models.ProfileReport{}, errors.NewPrivateProfile(username)
	}
	if !lookup.Found {
		if err := ctx.Err(); err != nil {
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			return models.ProfileReport{}, err
		}
		metrics.AnalysesTotal.WithLabelValues("empty").Inc()
		log.Warn("profile could not be resolved")
		return models.ProfileReport{}, errNoData
	}

	id := lookup.ID
	var (
		contact              instagram.ContactUser
		posts, reels         []models.Post
		followers, following []models.Follower
		tagged, highlights   int
	)

	// Collectors never fail; the group only joins them.
	var g errgroup.Group
	g.Go(func() error { contact = a.source.FetchContact(ctx, id); return nil })
	g.Go(func() error { posts, _ = a.streams.Posts(ctx, id); return nil })
	g.Go(func() error { reels, _ = a.streams.Reels(ctx, id); return nil })
	g.Go(func() error { followers = a.streams.Followers(ctx, id); return nil })
	g.Go(func() error { following = a.streams.Following(ctx, id); return nil })
	g.Go(func() error { tagged = a.streams.TaggedCount(ctx, id); return nil })
	g.Go(func() error { highlights = a.streams.HighlightsCount(ctx, id); return nil })
	g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.AnalysesTotal.WithLabelValues("error").Inc()
		return models.ProfileReport{}, err
	}

	timeline, totals := mergeTimeline(posts, reels)
	report := models.ProfileReport{
		ID:             id,
		ProfileLink:    instagram.ProfileLink(username),
		Username:       username,
		FullName:       contact.FullName,
		FollowersCount: contact.FollowerCount,
		FollowsCount:   contact.FollowingCount,
		IconURL:        contact.ProfilePicURL,
		Data: models.ReportData{
			PostsCount:      len(timeline),
			CommentsCount:   totals.Comments,
			ViewsCount:      totals.Views,
			LikesCount:      totals.Likes,
			Followers:       orEmpty(followers),
			Following:       orEmpty(following),
			Posts:           timeline,
			TaggedCount:     tagged,
			HighlightsCount: highlights,
		},
	}

	if contact == (instagram.ContactUser{}) && len(timeline) == 0 && len(followers) == 0 &&
		len(following) == 0 && tagged == 0 && highlights == 0 {
		metrics.AnalysesTotal.WithLabelValues("degraded").Inc()
		log.Warn("every stream came back empty")
		return report, errNoData
	}

	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	log.InfoWithFields("profile analyzed", map[string]interface{}{
		"posts":     len(timeline),
		"followers": len(report.Data.Followers),
		"following": len(report.Data.Following),
		"duration":  time.Since(start),
	})
	return report, nil
}

// mergeTimeline concatenates posts and reels, drops repeated shortcodes,
// sorts newest first keeping input order among equal dates, and sums the
// totals of what remains
func mergeTimeline(posts, reels []models.Post) ([]models.Post, models.Totals) {
	merged := make([]models.Post, 0, len(posts)+len(reels))
	seen := make(map[string]struct{}, len(posts)+len(reels))
	for _, list := range [][]models.Post{posts, reels} {
		for _, p := range list {
			if _, dup := seen[p.Shortcode]; dup {
				continue
			}
			seen[p.Shortcode] = struct{}{}
			merged = append(merged, p)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PostDate.After(merged[j].PostDate)
	})

	var totals models.Totals
	for _, p := range merged {
		totals = totals.Add(p.Totals())
	}
	return merged, totals
}

func reportKey(username string) string {
	return "report:" + username
}

func orEmpty(f []models.Follower) []models.Follower {
	if f == nil {
		return []models.Follower{}
	}
	return f
}
