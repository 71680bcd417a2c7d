// Package paginate implements the cursor-following fetch loop shared by
// every paged stream.
package paginate

import (
	"context"

	"igaggregator/pkg/instagram"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
)

// Fetcher performs one upstream call and decodes it. Failures surface as an
// empty Body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) instagram.Body
}

// Request describes one paged stream run
type Request[T any] struct {
	// Stream names the run in logs and metrics
	Stream string
	// Template is an upstream URL containing instagram.CursorPlaceholder
	Template string
	// Cursor is the first-page cursor
	Cursor   string
	PageSize int
	// Budget caps both the number of pages (page*PageSize >= Budget stops the
	// loop) and the number of items returned. Zero or less fetches one page.
	Budget int
	// Extract returns the page's items and the next cursor ("" when done)
	Extract func(body instagram.Body) ([]T, string)
	// Key is the identity used for deduplication; nil disables it
	Key func(item T) string
	// Enrich, when set, is applied to each page's new items before they are
	// accumulated
	Enrich func(ctx context.Context, fresh []T) []T
}

// Result is what a run accumulated
type Result[T any] struct {
	Items []T
	Pages int
}

// Paginator drives Request runs against a Fetcher
type Paginator struct {
	fetcher Fetcher
	logger  logger.Logger
}

// New creates a Paginator
func New(fetcher Fetcher, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Paginator{
		fetcher: fetcher,
		logger:  log.WithField("component", "paginator"),
	}
}

// Collect follows cursors until the upstream stops returning one, a page
// cannot be fetched or decoded, the context ends, or the budget is reached.
// Whatever was accumulated up to that point is returned.
func Collect[T any](ctx context.Context, p *Paginator, req Request[T]) Result[T] {
	var res Result[T]
	seen := make(map[string]struct{})
	cursor := req.Cursor
	page := 1

	for cursor != "" {
		if ctx.Err() != nil {
			break
		}

		body := p.fetcher.Fetch(ctx, instagram.Fill(req.Template, cursor))
		if body.Empty() {
			break
		}
		res.Pages++

		items, next := req.Extract(body)
		fresh := make([]T, 0, len(items))
		for _, item := range items {
			if req.Key != nil {
				key := req.Key(item)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			fresh = append(fresh, item)
		}

		if req.Budget > 0 && len(res.Items)+len(fresh) > req.Budget {
			fresh = fresh[:req.Budget-len(res.Items)]
		}
		if req.Enrich != nil && len(fresh) > 0 {
			fresh = req.Enrich(ctx, fresh)
		}
		res.Items = append(res.Items, fresh...)

		cursor = next
		page++
		if req.Budget <= 0 || page*req.PageSize >= req.Budget || len(res.Items) >= req.Budget {
			cursor = ""
		}
	}

	if req.Stream != "" {
		metrics.StreamPages.WithLabelValues(req.Stream).Add(float64(res.Pages))
		metrics.StreamItems.WithLabelValues(req.Stream).Observe(float64(len(res.Items)))
	}
	logger.LogStreamCollected(p.logger, req.Stream, len(res.Items), res.Pages)

	return res
}
