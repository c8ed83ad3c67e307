// Command seed populates the repository with generated sample mentions and
// sentiment scores across the configured brands, for demos and development.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var sampleAuthors = []string{
	"tech_reviewer_01", "gadget_guru", "daily_deals", "mobile_maven",
	"silicon_insider", "the_unboxer", "chip_chatter", "firmware_fan",
}

var sampleTemplates = []struct {
	content  string
	compound float64
}{
	{"Really impressed with the new %s release, battery life is great", 0.7},
	{"%s support was helpful and sorted my issue quickly", 0.5},
	{"Thinking about switching to %s, any opinions?", 0.1},
	{"%s keynote was fine, nothing groundbreaking this year", 0.0},
	{"My %s device keeps rebooting after the update, anyone else?", -0.4},
	{"Terrible experience with %s customer service today", -0.6},
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set to seed a persistent repository")
	}

	ctx := context.Background()

	if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC().Truncate(cfg.EvalInterval)

	total := 0
	// Two days of history per brand, a handful of mentions per window.
	for _, brand := range cfg.Brands {
		for windowsBack := 48; windowsBack >= 1; windowsBack-- {
			windowStart := now.Add(-time.Duration(windowsBack) * cfg.EvalInterval)
			n := 3 + rng.Intn(5)
			for i := 0; i < n; i++ {
				mention, score := sampleMention(rng, brand, windowStart, cfg.EvalInterval)

				stored, ids, err := repo.StoreMentions(ctx, []models.Mention{mention})
				if err != nil {
					logrus.Fatalf("Failed to store mention: %v", err)
				}
				if stored == 0 {
					continue
				}

				score.MentionID = ids[0]
				if err := repo.StoreSentiment(ctx, score); err != nil {
					logrus.Fatalf("Failed to store sentiment: %v", err)
				}
				total++
			}
		}
	}

	logrus.Infof("Seeded %d mentions across %d brands", total, len(cfg.Brands))
}

func sampleMention(rng *rand.Rand, brand string, windowStart time.Time, windowLen time.Duration) (models.Mention, models.SentimentScore) {
	template := sampleTemplates[rng.Intn(len(sampleTemplates))]
	author := sampleAuthors[rng.Intn(len(sampleAuthors))]
	id := uuid.NewString()

	mention := models.Mention{
		ID:         id,
		Kind:       models.SourceSocialPost,
		Brand:      brand,
		Content:    fmt.Sprintf(template.content, brand),
		Author:     author,
		URL:        fmt.Sprintf("https://example.com/posts/%s", id),
		CreatedAt:  windowStart.Add(time.Duration(rng.Int63n(int64(windowLen)))),
		Engagement: rng.Intn(200),
		Extras: &models.MentionExtras{
			Community:  "r/technology",
			SourceName: "reddit",
		},
	}

	compound := template.compound + (rng.Float64()-0.5)*0.2
	negative := 0.0
	positive := 0.0
	if compound < 0 {
		negative = -compound
	} else {
		positive = compound
	}

	score := models.SentimentScore{
		Polarity:     compound,
		Subjectivity: 0.3 + rng.Float64()*0.4,
		Compound:     compound,
		Positive:     positive,
		Negative:     negative,
		Neutral:      1 - positive - negative,
	}

	return mention, score
}
