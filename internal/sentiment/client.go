package sentiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/go-resty/resty/v2"
)

// componentTolerance is how far positive+negative+neutral may drift from 1
// before the analyzer response is rejected.
const componentTolerance = 0.05

// Scorer produces a sentiment score for a piece of text. The scoring
// algorithm itself lives upstream; this package only transports.
type Scorer interface {
	Score(ctx context.Context, text string) (models.SentimentScore, error)
}

// Client calls the configured sentiment analyzer API.
type Client struct {
	apiURL string
	client *resty.Client
}

// Ensure Client implements Scorer
var _ Scorer = (*Client)(nil)

// NewClient creates a sentiment client for the given analyzer endpoint.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL: apiURL,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

// Enabled reports whether an analyzer endpoint is configured. When disabled,
// mentions simply stay unscored until one is.
func (c *Client) Enabled() bool {
	return c.apiURL != ""
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Compound     float64 `json:"compound"`
	Positive     float64 `json:"positive"`
	Negative     float64 `json:"negative"`
	Neutral      float64 `json:"neutral"`
}

// Score posts the text to the analyzer and maps its response. Responses whose
// component scores do not sum to 1 within tolerance are rejected, leaving the
// mention unscored.
func (c *Client) Score(ctx context.Context, text string) (models.SentimentScore, error) {
	var parsed scoreResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(scoreRequest{Text: text}).
		SetResult(&parsed).
		Post(c.apiURL)

	if err != nil {
		return models.SentimentScore{}, fmt.Errorf("calling sentiment API: %w", err)
	}

	if resp.StatusCode() != 200 {
		return models.SentimentScore{}, fmt.Errorf("sentiment API returned status %d", resp.StatusCode())
	}

	if sum := parsed.Positive + parsed.Negative + parsed.Neutral; math.Abs(sum-1) > componentTolerance {
		return models.SentimentScore{}, fmt.Errorf("sentiment API component scores sum to %.3f, want 1", sum)
	}

	return models.SentimentScore{
		Polarity:     parsed.Polarity,
		Subjectivity: parsed.Subjectivity,
		Compound:     parsed.Compound,
		Positive:     parsed.Positive,
		Negative:     parsed.Negative,
		Neutral:      parsed.Neutral,
	}, nil
}
