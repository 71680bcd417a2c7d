// Package instagram talks to the third-party Instagram data API.
//
// Client is the request executor. Every call takes the next key from a
// keys.Rotator, waits on the per-key rate limiter, passes through an
// optional circuit breaker and records Prometheus metrics. Failures are
// logged and surface as a nil *Response, never as an error, so callers
// degrade to empty results instead of aborting an analysis.
//
// Endpoints builds the upstream URLs. Paged templates carry
// CursorPlaceholder, which Fill replaces with the current cursor:
//
//	c := instagram.NewClient(cfg.API, rotator, log)
//	tmpl := c.Endpoints().Followers(id, 50)
//	page := c.Fetch(ctx, instagram.Fill(tmpl, instagram.InitialOffset))
//	cursor := page.Data().Cursor()
//
// Body keeps payload members as raw JSON; the typed page structs in this
// package decode just the parts each stream needs.
package instagram
