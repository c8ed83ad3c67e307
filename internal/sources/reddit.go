package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RedditSource implements Reddit API source
type RedditSource struct {
	clientID     string
	clientSecret string
	subreddits   []string
	client       *resty.Client
	accessToken  string
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	Subreddit string  `json:"subreddit"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
}

// NewRedditSource creates a new Reddit source searching the given subreddits
func NewRedditSource(clientID, clientSecret string, subreddits []string) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   subreddits,
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

func (r *RedditSource) Name() string {
	return "reddit"
}

func (r *RedditSource) Enabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]SourcedMention, error) {
	if !r.Enabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	if err := r.authenticate(); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	var allMentions []SourcedMention

	for _, brand := range brands {
		for _, subreddit := range r.subreddits {
			mentions, err := r.searchSubreddit(ctx, subreddit, brand, since)
			if err != nil {
				logrus.Errorf("Failed to search r/%s for brand '%s': %v", subreddit, brand, err)
				continue
			}
			allMentions = append(allMentions, mentions...)
		}
	}

	return allMentions, nil
}

func (r *RedditSource) authenticate() error {
	resp, err := r.client.R().
		SetHeader("User-Agent", "Brand-Monitor/1.0").
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post("https://www.reddit.com/api/v1/access_token")

	if err != nil {
		return err
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return err
	}

	r.accessToken = authResp.AccessToken
	return nil
}

func (r *RedditSource) searchSubreddit(ctx context.Context, subreddit, brand string, since time.Duration) ([]SourcedMention, error) {
	query := url.QueryEscape(brand)
	searchURL := fmt.Sprintf("https://oauth.reddit.com/r/%s/search.json?q=%s&restrict_sr=1&sort=new&limit=100", subreddit, query)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetHeader("User-Agent", "Brand-Monitor/1.0").
		Get(searchURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var searchResp redditSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, err
	}

	var mentions []SourcedMention
	cutoff := time.Now().Add(-since)

	for _, child := range searchResp.Data.Children {
		post := child.Data
		createdAt := time.Unix(int64(post.Created), 0).UTC()

		if createdAt.Before(cutoff) {
			continue
		}

		// The search can match on flair or crossposts; require the brand in
		// the post text itself.
		content := strings.ToLower(post.Title + " " + post.Selftext)
		if !strings.Contains(content, strings.ToLower(brand)) {
			continue
		}

		mentions = append(mentions, SourcedMention{
			Mention: mapRedditPost(post, brand, createdAt),
		})
	}

	return mentions, nil
}

func mapRedditPost(post redditPost, brand string, createdAt time.Time) models.Mention {
	return models.Mention{
		Kind:       models.SourceSocialPost,
		Brand:      brand,
		Content:    post.Selftext,
		Author:     post.Author,
		URL:        fmt.Sprintf("https://reddit.com%s", post.Permalink),
		CreatedAt:  createdAt,
		Engagement: maxInt(post.Score, 0),
		Extras: &models.MentionExtras{
			Title:      post.Title,
			Community:  fmt.Sprintf("r/%s", post.Subreddit),
			SourceName: "reddit",
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
