package paginate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"igaggregator/pkg/instagram"
	"igaggregator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned JSON bodies keyed by the cursor in the URL
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	urls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) instagram.Body {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)

	cursor := url[strings.LastIndex(url, "/")+1:]
	raw, ok := f.pages[cursor]
	if !ok {
		return instagram.Body{}
	}
	body, err := instagram.DecodeBody([]byte(raw))
	if err != nil {
		return instagram.Body{}
	}
	return body
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

func page(next string, items ...string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return fmt.Sprintf(`{"data":{"edges":[%s],"end_cursor":%q}}`, strings.Join(quoted, ","), next)
}

func extractStrings(body instagram.Body) ([]string, string) {
	data := body.Data()
	var items []string
	data.Into("edges", &items)
	return items, data.Cursor()
}

func newRequest(budget, pageSize int) Request[string] {
	return Request[string]{
		Stream:   "test",
		Template: "https://api.test/stream/1/" + instagram.CursorPlaceholder,
		Cursor:   "c0",
		PageSize: pageSize,
		Budget:   budget,
		Extract:  extractStrings,
		Key:      func(s string) string { return s },
	}
}

func TestCollect_FollowsCursorUntilExhausted(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a", "b"),
		"c1": page("c2", "c"),
		"c2": page("", "d"),
	}}
	p := New(f, logger.NewNopLogger())

	res := Collect(context.Background(), p, newRequest(1000, 2))

	assert.Equal(t, []string{"a", "b", "c", "d"}, res.Items)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{
		"https://api.test/stream/1/c0",
		"https://api.test/stream/1/c1",
		"https://api.test/stream/1/c2",
	}, f.urls)
}

func TestCollect_BudgetTerminatesEndlessCursor(t *testing.T) {
	pages := make(map[string]string)
	for i := 0; i < 100; i++ {
		pages[fmt.Sprintf("c%d", i)] = page(fmt.Sprintf("c%d", i+1), fmt.Sprintf("item%d", i))
	}
	f := &fakeFetcher{pages: pages}
	p := New(f, logger.NewNopLogger())

	res := Collect(context.Background(), p, newRequest(150, 50))

	// page counter hits 3 after the second fetch and 3*50 >= 150
	assert.Equal(t, 2, f.calls())
	assert.Equal(t, 2, res.Pages)
	assert.LessOrEqual(t, len(res.Items), 150)
}

func TestCollect_BudgetEqualToPageSizeFetchesOnePage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a"),
		"c1": page("c2", "b"),
	}}
	p := New(f, logger.NewNopLogger())

	res := Collect(context.Background(), p, newRequest(50, 50))

	assert.Equal(t, 1, f.calls())
	assert.Equal(t, []string{"a"}, res.Items)
}

func TestCollect_NonPositiveBudgetFetchesOnePage(t *testing.T) {
	for _, budget := range []int{0, -5} {
		f := &fakeFetcher{pages: map[string]string{
			"c0": page("c1", "a"),
			"c1": page("", "b"),
		}}
		res := Collect(context.Background(), New(f, logger.NewNopLogger()), newRequest(budget, 50))

		assert.Equal(t, 1, f.calls(), "budget %d", budget)
		assert.Equal(t, []string{"a"}, res.Items)
	}
}

func TestCollect_DeduplicatesAcrossPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a", "b", "a"),
		"c1": page("", "b", "c"),
	}}
	res := Collect(context.Background(), New(f, logger.NewNopLogger()), newRequest(1000, 10))

	assert.Equal(t, []string{"a", "b", "c"}, res.Items)
}

func TestCollect_NilKeyKeepsDuplicates(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("", "a", "a"),
	}}
	req := newRequest(1000, 10)
	req.Key = nil

	res := Collect(context.Background(), New(f, logger.NewNopLogger()), req)
	assert.Equal(t, []string{"a", "a"}, res.Items)
}

func TestCollect_FailSoftKeepsPartialResults(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a", "b"),
		// c1 is missing: the fetcher reports an absent response
		"c2": page("c3", "x"),
		"c3": page("c4", "y"),
		"c4": page("", "z"),
	}}
	res := Collect(context.Background(), New(f, logger.NewNopLogger()), newRequest(1000, 10))

	assert.Equal(t, []string{"a", "b"}, res.Items)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 2, f.calls())
}

func TestCollect_CapsItemsAtBudget(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a", "b", "c", "d", "e"),
		"c1": page("", "f"),
	}}
	res := Collect(context.Background(), New(f, logger.NewNopLogger()), newRequest(3, 1))

	assert.Equal(t, []string{"a", "b", "c"}, res.Items)
	assert.Equal(t, 1, f.calls())
}

func TestCollect_EnrichSeesOnlyNewItems(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"c0": page("c1", "a", "b"),
		"c1": page("", "b", "c"),
	}}
	var batches [][]string
	req := newRequest(1000, 10)
	req.Enrich = func(ctx context.Context, fresh []string) []string {
		batches = append(batches, append([]string(nil), fresh...))
		out := make([]string, len(fresh))
		for i, s := range fresh {
			out[i] = strings.ToUpper(s)
		}
		return out
	}

	res := Collect(context.Background(), New(f, logger.NewNopLogger()), req)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, batches)
	assert.Equal(t, []string{"A", "B", "C"}, res.Items)
}

func TestCollect_CancelledContext(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"c0": page("", "a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Collect(ctx, New(f, logger.NewNopLogger()), newRequest(1000, 10))

	assert.Empty(t, res.Items)
	assert.Equal(t, 0, f.calls())
}

func TestCollect_EmptyInitialCursor(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	req := newRequest(1000, 10)
	req.Cursor = ""

	res := Collect(context.Background(), New(f, logger.NewNopLogger()), req)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, f.calls())
}

func TestCollect_LogsSummary(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"c0": page("", "a")}}
	log := logger.NewTestLogger()

	Collect(context.Background(), New(f, log), newRequest(1000, 10))

	msgs := log.FindMessages("stream collected")
	require.Len(t, msgs, 1)
	assert.Equal(t, "test", msgs[0].Fields["stream"])
	assert.Equal(t, 1, msgs[0].Fields["items"])
	assert.Equal(t, "paginator", msgs[0].Fields["component"])
}
