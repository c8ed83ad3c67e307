package sources

import (
	"context"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
)

// SourcedMention is a mention as it comes off a source, before ingestion.
// Sentiment is set only when the source supplies scores of its own;
// AuthorFollowers is ingestion metadata for influencer scoring and is not
// persisted on the mention.
type SourcedMention struct {
	Mention         models.Mention
	Sentiment       *models.SentimentScore
	AuthorFollowers int
}

// Source interface defines the contract for all mention sources
type Source interface {
	Name() string
	Enabled() bool
	FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]SourcedMention, error)
}
