// Package notifier posts run summaries to a Slack incoming webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
)

// maxListed caps the failed resources named in one message.
const maxListed = 10

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	HTTPClient *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Scope names where a run happened. Empty fields are shown as "default" and
// "unknown".
type Scope struct {
	Region  string
	Account string
}

// SendSummary posts the outcome of one run. A client without a webhook is a
// no-op.
func (s *SlackClient) SendSummary(ctx context.Context, summary *engine.BatchSummary, scope Scope) error {
	if s.WebhookURL == "" || summary == nil {
		return nil
	}
	return s.send(ctx, s.constructPayload(summary, scope, time.Now()))
}

// constructPayload builds the message blocks.
func (s *SlackClient) constructPayload(summary *engine.BatchSummary, scope Scope, now time.Time) map[string]any {
	statusIcon := "🟢"
	switch summary.Status {
	case engine.StatusPartialFailure:
		statusIcon = "🟡"
	case engine.StatusFatal:
		statusIcon = "🔴"
	}
	mode := "live"
	if summary.DryRun {
		mode = "dry run"
	}
	region, account := scope.Region, scope.Account
	if region == "" {
		region = "default"
	}
	if account == "" {
		account = "unknown"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("%s cloudsweep %s: %s", statusIcon, summary.Job, summary.Status),
			},
		},
		{
			"type": "context",
			"elements": []map[string]any{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run Date:* %s | *Account:* %s | *Region:* %s | *Mode:* %s", now.Format("2006-01-02"), account, region, mode),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Listed:*\n%d", summary.Listed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Applied:*\n%d", summary.Applied)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Simulated:*\n%d", summary.Simulated)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Failed:*\n%d", summary.Failed)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Skipped:*\n%d", summary.Skipped)},
			},
		},
	}

	if summary.Failed > 0 {
		text := "⚠️ *Failed actions*"
		n := 0
		for _, o := range summary.Outcomes {
			if o.Status != engine.Failed {
				continue
			}
			if n == maxListed {
				text += fmt.Sprintf("\n…and %d more", summary.Failed-maxListed)
				break
			}
			text += fmt.Sprintf("\n• `%s` %s", o.ID, o.Message)
			n++
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": text},
		})
	}

	payload := map[string]any{
		"blocks": blocks,
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}

func (s *SlackClient) send(ctx context.Context, payload map[string]any) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}
