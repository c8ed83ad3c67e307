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

// NewsSource implements the NewsAPI /v2/everything source. Articles carry no
// engagement signal.
type NewsSource struct {
	apiKey   string
	keywords []string
	client   *resty.Client
}

type newsSearchResponse struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// NewNewsSource creates a NewsAPI source; keywords qualify the brand query to
// keep ambiguous brand names (Apple) on topic.
func NewNewsSource(apiKey string, keywords []string) *NewsSource {
	return &NewsSource{
		apiKey:   apiKey,
		keywords: keywords,
		client:   resty.New().SetTimeout(30 * time.Second),
	}
}

func (n *NewsSource) Name() string {
	return "news"
}

func (n *NewsSource) Enabled() bool {
	return n.apiKey != ""
}

func (n *NewsSource) FetchMentions(ctx context.Context, brands []string, since time.Duration) ([]SourcedMention, error) {
	if !n.Enabled() {
		logrus.Debug("News source disabled - missing API key")
		return nil, nil
	}

	var allMentions []SourcedMention

	for _, brand := range brands {
		mentions, err := n.searchBrand(ctx, brand, since)
		if err != nil {
			logrus.Errorf("Failed to search news for brand '%s': %v", brand, err)
			continue
		}
		allMentions = append(allMentions, mentions...)
	}

	return allMentions, nil
}

func (n *NewsSource) searchBrand(ctx context.Context, brand string, since time.Duration) ([]SourcedMention, error) {
	query := brand
	if len(n.keywords) > 0 {
		query = fmt.Sprintf("%s AND (%s)", brand, orJoin(n.keywords))
	}

	from := time.Now().Add(-since).UTC().Format(time.RFC3339)
	searchURL := fmt.Sprintf(
		"https://newsapi.org/v2/everything?q=%s&from=%s&sortBy=publishedAt&pageSize=100",
		url.QueryEscape(query), url.QueryEscape(from),
	)

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", n.apiKey).
		Get(searchURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("news API returned status %d", resp.StatusCode())
	}

	var searchResp newsSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, err
	}

	var mentions []SourcedMention
	for _, article := range searchResp.Articles {
		publishedAt, err := time.Parse(time.RFC3339, article.PublishedAt)
		if err != nil {
			logrus.Debugf("Skipping article with unparseable timestamp %q", article.PublishedAt)
			continue
		}

		mentions = append(mentions, SourcedMention{
			Mention: mapNewsArticle(article, brand, publishedAt),
		})
	}

	return mentions, nil
}

func mapNewsArticle(article newsArticle, brand string, publishedAt time.Time) models.Mention {
	return models.Mention{
		Kind:      models.SourceNewsArticle,
		Brand:     brand,
		Content:   article.Description,
		Author:    article.Author,
		URL:       article.URL,
		CreatedAt: publishedAt.UTC(),
		Extras: &models.MentionExtras{
			Title:      article.Title,
			SourceName: article.Source.Name,
		},
	}
}

func orJoin(terms []string) string {
	out := ""
	for i, t := range terms {
		if i > 0 {
			out += " OR "
		}
		out += t
	}
	return out
}
