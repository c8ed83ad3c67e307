package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending alert notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// AlertOpened notifies all configured channels about a newly opened crisis
// alert.
func (s *Service) AlertOpened(alert *models.CrisisAlert) error {
	title := fmt.Sprintf("Crisis alert: %s", alert.Brand)
	body := fmt.Sprintf("A reputational crisis was detected for %s (severity %.2f).", alert.Brand, alert.Severity)
	return s.send(title, body, alert)
}

// AlertResolved notifies all configured channels that a crisis alert has
// resolved.
func (s *Service) AlertResolved(alert *models.CrisisAlert) error {
	title := fmt.Sprintf("Crisis resolved: %s", alert.Brand)
	body := fmt.Sprintf("The crisis alert for %s has resolved. %s", alert.Brand, alert.ResolutionNotes)
	return s.send(title, body, alert)
}

func (s *Service) send(title, body string, alert *models.CrisisAlert) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(title, body, alert); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent Teams notification: %s", title)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(title, body, alert); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent email notification: %s", title)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(title, body string, alert *models.CrisisAlert) error {
	message := buildTeamsMessage(title, body, alert)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildTeamsMessage(title, body string, alert *models.CrisisAlert) *TeamsMessage {
	facts := []TeamsFact{
		{Name: "Brand", Value: alert.Brand},
		{Name: "Severity", Value: fmt.Sprintf("%.2f", alert.Severity)},
		{Name: "Status", Value: string(alert.Status)},
		{Name: "Detected", Value: alert.DetectedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if alert.Description != "" {
		facts = append(facts, TeamsFact{Name: "Cause", Value: alert.Description})
	}
	if alert.ResolvedAt != nil {
		facts = append(facts, TeamsFact{Name: "Resolved", Value: alert.ResolvedAt.Format("2006-01-02 15:04:05 UTC")})
	}

	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   title,
		Text:    body,
		Sections: []TeamsSection{
			{ActivityTitle: "Details", Facts: facts, Markdown: true},
		},
	}
}

func (s *Service) sendEmail(title, body string, alert *models.CrisisAlert) error {
	var text strings.Builder
	text.WriteString(body + "\n\n")
	text.WriteString(fmt.Sprintf("Brand:    %s\n", alert.Brand))
	text.WriteString(fmt.Sprintf("Severity: %.2f\n", alert.Severity))
	text.WriteString(fmt.Sprintf("Status:   %s\n", alert.Status))
	text.WriteString(fmt.Sprintf("Detected: %s\n", alert.DetectedAt.Format("2006-01-02 15:04:05 UTC")))
	if alert.Description != "" {
		text.WriteString(fmt.Sprintf("Cause:    %s\n", alert.Description))
	}
	if alert.ResolvedAt != nil {
		text.WriteString(fmt.Sprintf("Resolved: %s\n", alert.ResolvedAt.Format("2006-01-02 15:04:05 UTC")))
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", text.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
