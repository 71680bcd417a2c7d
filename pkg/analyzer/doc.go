// Package analyzer assembles profile reports.
//
// An analysis first resolves the username. Private profiles stop there with
// errors.ErrProfileIsPrivate; unknown ones produce an empty report. Otherwise
// the profile metadata, posts, reels, followers, following and the tagged
// and highlights counts are collected concurrently and merged into one
// models.ProfileReport, with posts and reels interleaved newest first.
//
// Finished reports are cached by username for the configured TTL.
//
// Basic usage:
//
//	a, err := analyzer.New(cfg, logger.GetLogger())
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	report, err := a.Analyze(ctx, "nasa")
//	if errors.IsPrivate(err) {
//	    // nothing to report
//	}
package analyzer
