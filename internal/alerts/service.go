package alerts

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
)

// Service delivers events and run summaries over the configured channels:
// a JSON webhook, email, or both. With neither configured it degrades to
// logging, which keeps CLI runs quiet but observable.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ Dispatcher = (*Service)(nil)

// WebhookMessage is the JSON body posted to the webhook endpoint.
type WebhookMessage struct {
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []WebhookSection `json:"sections,omitempty"`
}

type WebhookSection struct {
	Title string        `json:"title,omitempty"`
	Text  string        `json:"text,omitempty"`
	Facts []WebhookFact `json:"facts,omitempty"`
}

type WebhookFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates an alert dispatcher.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendEvent posts a single event to the webhook. Events are not emailed;
// they are high-frequency signals for machines, not inboxes.
func (s *Service) SendEvent(event models.Event) error {
	if s.config.WebhookURL == "" {
		logrus.Infof("event %s (no webhook configured): %v", event.Event, event.Data)
		return nil
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post event %s: %w", event.Event, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d for event %s: %s",
			resp.StatusCode(), event.Event, string(resp.Body()))
	}

	logrus.Debugf("delivered event %s", event.Event)
	return nil
}

// SendSummary delivers a run summary via every configured channel and
// reports all failures together.
func (s *Service) SendSummary(summary *RunSummary) error {
	var failures []string

	if s.config.WebhookURL != "" {
		if err := s.sendToWebhook(summary); err != nil {
			logrus.Errorf("Failed to send webhook summary: %v", err)
			failures = append(failures, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent summary to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(summary); err != nil {
			logrus.Errorf("Failed to send email summary: %v", err)
			failures = append(failures, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent summary via email")
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("summary delivery errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (s *Service) sendToWebhook(summary *RunSummary) error {
	message := buildWebhookMessage(summary)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post summary: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func buildWebhookMessage(summary *RunSummary) *WebhookMessage {
	message := &WebhookMessage{
		Title: fmt.Sprintf("Mentions Report - %q", summary.Query),
		Text:  fmt.Sprintf("Found %d mentions in the last %s", summary.TotalMentions, summary.Period),
	}

	facts := []WebhookFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", summary.TotalMentions)},
		{Name: "Generated", Value: summary.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for label, count := range summary.Sentiment {
		facts = append(facts, WebhookFact{
			Name:  fmt.Sprintf("%s Mentions", strings.Title(label)),
			Value: fmt.Sprintf("%d", count),
		})
	}
	for source, count := range summary.Sources {
		facts = append(facts, WebhookFact{
			Name:  fmt.Sprintf("From %s", source),
			Value: fmt.Sprintf("%d", count),
		})
	}
	message.Sections = append(message.Sections, WebhookSection{
		Title: "Summary",
		Facts: facts,
	})

	if len(summary.Mentions) > 0 {
		var lines []string
		limit := 5
		if len(summary.Mentions) < limit {
			limit = len(summary.Mentions)
		}
		for i := 0; i < limit; i++ {
			m := summary.Mentions[i]
			label := "unscored"
			if m.Sentiment != nil {
				label = m.Sentiment.Label
			}
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s, %s (%s)",
				m.Author, m.URL, m.Platform, label, m.CreatedAt.Format("Jan 2")))
		}
		message.Sections = append(message.Sections, WebhookSection{
			Title: "Recent Mentions",
			Text:  strings.Join(lines, "\n\n"),
		})
	}

	return message
}

func (s *Service) sendEmail(summary *RunSummary) error {
	subject := fmt.Sprintf("Mentions Report - %q (%d mentions)", summary.Query, summary.TotalMentions)

	htmlBody, err := buildEmailHTML(summary)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}
	textBody := buildEmailText(summary)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var emailTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"title": strings.Title,
	"truncate": func(s string, length int) string {
		if len(s) <= length {
			return s
		}
		return s[:length] + "..."
	},
	"label": func(m models.Mention) string {
		if m.Sentiment == nil {
			return "neutral"
		}
		return m.Sentiment.Label
	},
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Mentions Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #1b3a57; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #1b3a57; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
        .neutral { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Mentions Report</h1>
        <p>Query {{printf "%q" .Query}}, generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        {{range $label, $count := .Sentiment}}
            <p><strong>{{$label | title}} Mentions:</strong> {{$count}}</p>
        {{end}}
        {{if .TopKeywords}}
            <p><strong>Top Keywords:</strong> {{range $i, $k := .TopKeywords}}{{if $i}}, {{end}}{{$k}}{{end}}</p>
        {{end}}
    </div>

    {{if .Mentions}}
    <h2>Recent Mentions</h2>
    {{range $index, $mention := .Mentions}}
        {{if lt $index 10}}
        <div class="mention {{label $mention}}">
            <div class="mention-meta">
                By {{$mention.Author}} on {{$mention.Platform}} | {{$mention.CreatedAt.Format "Jan 2, 2006"}}
                | <a href="{{$mention.URL}}" target="_blank">link</a>
            </div>
            {{if $mention.Text}}
            <p>{{truncate $mention.Text 200}}</p>
            {{end}}
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by repwatch.</small></p>
</body>
</html>
`))

func buildEmailHTML(summary *RunSummary) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, summary); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(summary *RunSummary) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Mentions Report - %q\n", summary.Query))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", summary.TotalMentions))
	for label, count := range summary.Sentiment {
		text.WriteString(fmt.Sprintf("%s Mentions: %d\n", strings.Title(label), count))
	}
	if len(summary.TopKeywords) > 0 {
		text.WriteString(fmt.Sprintf("Top Keywords: %s\n", strings.Join(summary.TopKeywords, ", ")))
	}

	if len(summary.Mentions) > 0 {
		text.WriteString("\nRECENT MENTIONS\n")
		text.WriteString("===============\n")

		limit := 10
		if len(summary.Mentions) < limit {
			limit = len(summary.Mentions)
		}
		for i := 0; i < limit; i++ {
			m := summary.Mentions[i]
			text.WriteString(fmt.Sprintf("\n%d. %s on %s | %s\n", i+1, m.Author, m.Platform, m.CreatedAt.Format("Jan 2, 2006")))
			text.WriteString(fmt.Sprintf("   URL: %s\n", m.URL))
			if m.Text != "" {
				content := m.Text
				if len(content) > 200 {
					content = content[:200] + "..."
				}
				text.WriteString(fmt.Sprintf("   Content: %s\n", content))
			}
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by repwatch.\n")
	return text.String()
}
