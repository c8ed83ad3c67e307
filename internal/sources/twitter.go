package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// TwitterSource implements the X/Twitter recent search source. Author
// follower counts are captured via user expansions for influencer scoring.
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
}

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

type twitterUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "Brand-Monitor/1.0"),
	}
}

func (t *TwitterSource) Name() string {
	return "twitter"
}

func (t *TwitterSource) Enabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]SourcedMention, error) {
	if !t.Enabled() {
		logrus.Debug("Twitter source disabled - missing bearer token")
		return nil, nil
	}

	var allMentions []SourcedMention

	for i, brand := range brands {
		// Space out brand searches to avoid rate limiting
		if i > 0 {
			select {
			case <-ctx.Done():
				return allMentions, ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}

		mentions, err := t.searchBrand(ctx, brand, since)
		if err != nil {
			logrus.Errorf("Failed to search Twitter for brand '%s': %v", brand, err)
			continue
		}

		logrus.Infof("Found %d mentions on Twitter for brand '%s'", len(mentions), brand)
		allMentions = append(allMentions, mentions...)
	}

	return allMentions, nil
}

func (t *TwitterSource) searchBrand(ctx context.Context, brand string, since time.Duration) ([]SourcedMention, error) {
	startTime := time.Now().Add(-since).UTC().Format(time.RFC3339)
	query := fmt.Sprintf("%s -is:retweet lang:en", brand)

	searchURL := fmt.Sprintf(
		"https://api.twitter.com/2/tweets/search/recent?query=%s&start_time=%s&max_results=100"+
			"&tweet.fields=created_at,public_metrics,referenced_tweets"+
			"&expansions=author_id&user.fields=public_metrics",
		url.QueryEscape(query), url.QueryEscape(startTime),
	)

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		Get(searchURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d", resp.StatusCode())
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, err
	}

	users := make(map[string]twitterUser, len(searchResp.Includes.Users))
	for _, u := range searchResp.Includes.Users {
		users[u.ID] = u
	}

	var mentions []SourcedMention
	for _, tweet := range searchResp.Data {
		if isRetweet(tweet) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Debugf("Skipping tweet %s with unparseable timestamp %q", tweet.ID, tweet.CreatedAt)
			continue
		}

		author := users[tweet.AuthorID]
		mentions = append(mentions, SourcedMention{
			Mention:         mapTweet(tweet, brand, author.Username, createdAt),
			AuthorFollowers: author.PublicMetrics.FollowersCount,
		})
	}

	return mentions, nil
}

func isRetweet(tweet twitterTweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}

func mapTweet(tweet twitterTweet, brand, username string, createdAt time.Time) models.Mention {
	return models.Mention{
		Kind:       models.SourceSocialPost,
		Brand:      brand,
		Content:    tweet.Text,
		Author:     username,
		URL:        fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID),
		CreatedAt:  createdAt.UTC(),
		Engagement: tweet.PublicMetrics.LikeCount,
		Extras: &models.MentionExtras{
			SourceName: "twitter",
		},
	}
}
