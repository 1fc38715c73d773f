package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/go-resty/resty/v2"
)

type SlackNotifier struct {
	WebhookURL string
	Channel    string

	client *resty.Client
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color      string       `json:"color"`
	Title      string       `json:"title"`
	Text       string       `json:"text,omitempty"`
	Fields     []slackField `json:"fields,omitempty"`
	Footer     string       `json:"footer,omitempty"`
	FooterIcon string       `json:"footer_icon,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "ghostprobe")

	return &SlackNotifier{
		WebhookURL: webhookURL,
		Channel:    channel,
		client:     client,
	}
}

// SendReport posts a summary of one probe run.
func (s *SlackNotifier) SendReport(ctx context.Context, report *models.Report) error {
	risk := report.Risk()

	var failed []string
	for _, c := range report.Capabilities {
		if !c.Present {
			failed = append(failed, c.Name)
		}
	}
	for _, st := range report.Stress {
		if !st.Succeeded {
			failed = append(failed, st.Name+" Stress")
		}
	}

	fields := make([]slackField, 0, len(report.Verdicts)+3)
	for _, v := range report.Verdicts {
		fields = append(fields, slackField{Title: v.Category.Label(), Value: yesNo(v.Value), Short: true})
	}
	fields = append(fields,
		slackField{Title: "Firmware", Value: report.System.Firmware, Short: true},
		slackField{Title: "Cobalt", Value: report.System.CobaltVersion, Short: true},
		slackField{Title: "Host", Value: report.Host, Short: true},
	)

	attachments := []slackAttachment{
		{
			Color:      riskColor(risk),
			Title:      fmt.Sprintf("Exploitability: %s", risk),
			Fields:     fields,
			Footer:     "ghostprobe",
			FooterIcon: "https://platform.slack-edge.com/img/default_application_icon.png",
		},
	}

	if len(failed) > 0 {
		text := ""
		for i, name := range failed {
			if i >= 8 {
				text += fmt.Sprintf("\n_...and %d more_", len(failed)-8)
				break
			}
			text += fmt.Sprintf("• %s\n", name)
		}
		attachments = append(attachments, slackAttachment{
			Color: "warning",
			Title: "Failed checks",
			Text:  strings.TrimRight(text, "\n"),
		})
	}

	msg := slackMessage{
		Channel:     s.Channel,
		Username:    "ghostprobe",
		IconEmoji:   ":video_game:",
		Text:        fmt.Sprintf("*Heuristic probe complete* (%s)", risk),
		Attachments: attachments,
	}
	return s.sendMessage(ctx, msg)
}

func (s *SlackNotifier) sendMessage(ctx context.Context, msg slackMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(s.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("slack returned non-200 status: %d", resp.StatusCode())
	}
	return nil
}

func riskColor(risk models.RiskLevel) string {
	switch risk {
	case models.RiskCritical, models.RiskHigh:
		return "danger"
	case models.RiskMedium:
		return "warning"
	}
	return "good"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
