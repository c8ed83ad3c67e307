package models

import "time"

// SourceKind tags a mention with the category of platform it came from.
type SourceKind string

const (
	SourceSocialPost  SourceKind = "social_post"
	SourceNewsArticle SourceKind = "news_article"
)

// Mention is an immutable record of a brand being talked about somewhere.
// Seq is the ingestion sequence number assigned by the repository when the
// mention is first stored; it drives per-brand watermarks.
type Mention struct {
	ID         string         `json:"id"`
	Kind       SourceKind     `json:"kind"`
	Brand      string         `json:"brand"`
	Content    string         `json:"content"`
	Author     string         `json:"author"`
	URL        string         `json:"url"`
	CreatedAt  time.Time      `json:"created_at"`
	Engagement int            `json:"engagement"`
	Extras     *MentionExtras `json:"extras,omitempty"`
	Seq        int64          `json:"seq,omitempty"`
}

// Platform names where the mention was authored, for influencer identity:
// the originating source name when known, otherwise the source kind.
func (m Mention) Platform() string {
	if m.Extras != nil && m.Extras.SourceName != "" {
		return m.Extras.SourceName
	}
	return string(m.Kind)
}

// MentionExtras carries the optional source-specific fields. Which fields are
// populated depends on Kind: social posts carry a community, news articles a
// title and outlet name.
type MentionExtras struct {
	Title      string `json:"title,omitempty"`
	Community  string `json:"community,omitempty"`
	SourceName string `json:"source_name,omitempty"`
}

// SentimentScore is attached 1:1 to a mention by the upstream analyzer.
// Positive, Negative and Neutral sum to 1 within tolerance.
type SentimentScore struct {
	MentionID    string  `json:"mention_id"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Compound     float64 `json:"compound"`
	Positive     float64 `json:"positive"`
	Negative     float64 `json:"negative"`
	Neutral      float64 `json:"neutral"`
}

// ScoredMention pairs a mention with its sentiment score. Sentiment is nil
// while the mention is still waiting to be scored.
type ScoredMention struct {
	Mention   Mention         `json:"mention"`
	Sentiment *SentimentScore `json:"sentiment,omitempty"`
}

// WindowStats summarizes one brand's mentions inside one half-open time
// bucket [Start, End). HasData is false when no scored mention fell in the
// window; MeanCompound and NegativeFraction are meaningless in that case and
// must not be read as "calm".
type WindowStats struct {
	Brand            string    `json:"brand"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	MentionCount     int       `json:"mention_count"`
	MeanCompound     float64   `json:"mean_compound"`
	NegativeFraction float64   `json:"negative_fraction"`
	TotalEngagement  int       `json:"total_engagement"`
	HasData          bool      `json:"has_data"`
	UnscoredCount    int       `json:"unscored_count"`
}

// AlertStatus is the closed set of crisis alert states.
type AlertStatus string

const (
	AlertStatusNew           AlertStatus = "new"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
)

// CanTransitionTo reports whether a status change is legal: new may move to
// investigating or resolved, investigating only to resolved, and resolved is
// terminal. Reopening happens by creating a fresh alert, never by reverting.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	switch s {
	case AlertStatusNew:
		return next == AlertStatusInvestigating || next == AlertStatusResolved
	case AlertStatusInvestigating:
		return next == AlertStatusResolved
	default:
		return false
	}
}

// Valid reports whether the value is one of the known statuses.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusNew, AlertStatusInvestigating, AlertStatusResolved:
		return true
	}
	return false
}

// CrisisAlert is created and mutated exclusively by the alert lifecycle
// manager (plus the operator endpoints, which go through the same transition
// rules). Severity never decreases while the alert is active.
type CrisisAlert struct {
	ID              string      `json:"id"`
	Brand           string      `json:"brand"`
	Description     string      `json:"description"`
	Severity        float64     `json:"severity"`
	DetectedAt      time.Time   `json:"detected_at"`
	Status          AlertStatus `json:"status"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
	ResolutionNotes string      `json:"resolution_notes,omitempty"`
}

// Active reports whether the alert still counts against the one-active-alert-
// per-brand invariant.
func (a *CrisisAlert) Active() bool {
	return a.Status != AlertStatusResolved
}

// RaiseSeverity updates severity to the maximum observed since creation.
func (a *CrisisAlert) RaiseSeverity(severity float64) {
	if severity > a.Severity {
		a.Severity = severity
	}
}

// Resolve transitions the alert to resolved at the given time. It returns
// false if the alert is already resolved.
func (a *CrisisAlert) Resolve(at time.Time, notes string) bool {
	if !a.Status.CanTransitionTo(AlertStatusResolved) {
		return false
	}
	a.Status = AlertStatusResolved
	a.ResolvedAt = &at
	a.ResolutionNotes = notes
	return true
}

// Influencer is a tracked account, identified by (Username, Platform).
type Influencer struct {
	Username      string    `json:"username"`
	Platform      string    `json:"platform"`
	Followers     int       `json:"followers"`
	ImpactScore   float64   `json:"impact_score"`
	BrandAffinity string    `json:"brand_affinity"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CompetitiveMetric compares a brand against one competitor over a period.
// SentimentRatio is nil when the competitor had no usable activity in the
// period, in which case the ratio is undefined rather than zero.
type CompetitiveMetric struct {
	Brand          string    `json:"brand"`
	Competitor     string    `json:"competitor"`
	SentimentRatio *float64  `json:"sentiment_ratio,omitempty"`
	MentionCount   int       `json:"mention_count"`
	EngagementRate float64   `json:"engagement_rate"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// PeriodAggregates is the repository's answer to "how did this brand do
// between start and end": scored mention count, mean compound score and total
// engagement.
type PeriodAggregates struct {
	MentionCount    int     `json:"mention_count"`
	MeanSentiment   float64 `json:"mean_sentiment"`
	TotalEngagement int     `json:"total_engagement"`
}

// AuthorStats summarizes an account's stored history: how many mentions it
// has produced, its average engagement, and the brand it mentions most.
type AuthorStats struct {
	MentionCount  int     `json:"mention_count"`
	AvgEngagement float64 `json:"avg_engagement"`
	TopBrand      string  `json:"top_brand"`
}
