package analyzer

import (
	"context"

	"igaggregator/pkg/instagram"
	"igaggregator/pkg/models"
)

// ProfileSource resolves usernames and profile metadata
type ProfileSource interface {
	LookupProfile(ctx context.Context, username string) instagram.ProfileLookup
	FetchContact(ctx context.Context, userID string) instagram.ContactUser
}

// StreamCollector gathers the independent data streams of one profile
type StreamCollector interface {
	Followers(ctx context.Context, userID string) []models.Follower
	Following(ctx context.Context, userID string) []models.Follower
	Posts(ctx context.Context, userID string) ([]models.Post, models.Totals)
	Reels(ctx context.Context, userID string) ([]models.Post, models.Totals)
	TaggedCount(ctx context.Context, userID string) int
	HighlightsCount(ctx context.Context, userID string) int
}
