package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// WebhookClient pushes messages to a Lark group through its incoming
// webhook. This is the outbound notification path; no app credentials are
// involved.
type WebhookClient struct {
	client     *http.Client
	webhookURL string
}

func NewWebhookClient(client *http.Client, webhookURL string) (*WebhookClient, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("lark webhook_url is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookClient{client: client, webhookURL: webhookURL}, nil
}

func (c *WebhookClient) SendText(ctx context.Context, content, title string) error {
	text := content
	if title != "" {
		text = title + "\n\n" + content
	}
	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": text,
		},
	}
	return c.post(ctx, payload)
}

func (c *WebhookClient) SendMarkdown(ctx context.Context, content, title string) error {
	if title == "" {
		title = "Notification"
	}
	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card":     json.RawMessage(BuildCard(title, content)),
	}
	return c.post(ctx, payload)
}

func (c *WebhookClient) post(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("lark webhook request failed: %s", resp.Status)
	}
	logutil.GetLogger(ctx).Info("sent lark webhook message", zap.Int("status", resp.StatusCode))
	return nil
}

// BuildCard renders a wide interactive card with a plain-text header and a
// single markdown element, the shape the digest and answer replies use.
func BuildCard(title, markdown string) []byte {
	card := map[string]interface{}{
		"config": map[string]bool{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"title": map[string]string{
				"tag":     "plain_text",
				"content": title,
			},
		},
		"elements": []interface{}{
			map[string]string{
				"tag":     "markdown",
				"content": markdown,
			},
		},
	}
	data, _ := json.Marshal(card)
	return data
}
