package ui

import (
	"fmt"
	"strings"

	"igaggregator/pkg/models"
)

const (
	barFull  = "█"
	barEmpty = "░"
	barWidth = 20
)

// Bar renders count against budget as a fixed width gauge
func Bar(count, budget int) string {
	filled := 0
	if budget > 0 {
		filled = count * barWidth / budget
	}
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(barFull, filled),
		strings.Repeat(barEmpty, barWidth-filled),
		count, budget)
}

// Budgets are the per-stream limits a summary is drawn against
type Budgets struct {
	Followers int
	Posts     int
}

// FormatReportSummary renders the headline numbers of a report
func FormatReportSummary(r models.ProfileReport, b Budgets) string {
	if r.IsEmpty() {
		return Yellow("no data returned for this profile")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Magenta("[PROFILE]"), Cyan(r.Username))
	if r.FullName != "" {
		fmt.Fprintf(&sb, "  %-12s %s\n", "name", r.FullName)
	}
	fmt.Fprintf(&sb, "  %-12s %s\n", "link", Dim(r.ProfileLink))
	fmt.Fprintf(&sb, "  %-12s %d followers, %d following\n", "audience", r.FollowersCount, r.FollowsCount)
	fmt.Fprintf(&sb, "  %-12s %s\n", "followers", Bar(len(r.Data.Followers), b.Followers))
	fmt.Fprintf(&sb, "  %-12s %s\n", "following", Bar(len(r.Data.Following), b.Followers))
	fmt.Fprintf(&sb, "  %-12s %s\n", "posts", Bar(r.Data.PostsCount, b.Posts))
	fmt.Fprintf(&sb, "  %-12s %d likes, %d comments, %d views\n", "engagement",
		r.Data.LikesCount, r.Data.CommentsCount, r.Data.ViewsCount)
	fmt.Fprintf(&sb, "  %-12s %d tagged, %d highlights", "extras", r.Data.TaggedCount, r.Data.HighlightsCount)
	return sb.String()
}

// PrintReportSummary prints FormatReportSummary unless quiet
func PrintReportSummary(r models.ProfileReport, b Budgets) {
	if w, q := stdout(); !q {
		writeLine(w, FormatReportSummary(r, b))
	}
}
