package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	// Tenant tokens live for two hours; cache them a little shorter so a
	// token is never used right at its expiry edge.
	tokenCacheTTL = 115 * time.Minute

	tokenCacheKey = "tenant_access_token"
)

// Bot talks to the Lark open API with app credentials: it fetches and
// caches the tenant access token and replies to messages.
type Bot struct {
	client    *http.Client
	appID     string
	appSecret string
	baseURL   string
	tokens    *expirable.LRU[string, string]
}

func NewBot(client *http.Client, appID, appSecret, baseURL string) *Bot {
	if client == nil {
		client = http.DefaultClient
	}
	return &Bot{
		client:    client,
		appID:     appID,
		appSecret: appSecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokens:    expirable.NewLRU[string, string](1, nil, tokenCacheTTL),
	}
}

func (b *Bot) Configured() bool {
	return b.appID != "" && b.appSecret != ""
}

func (b *Bot) tenantToken(ctx context.Context) (string, error) {
	if token, ok := b.tokens.Get(tokenCacheKey); ok {
		return token, nil
	}
	if !b.Configured() {
		return "", fmt.Errorf("lark app_id and app_secret are required for bot replies")
	}
	payload := map[string]string{
		"app_id":     b.appID,
		"app_secret": b.appSecret,
	}
	var out struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := b.postJSON(ctx, b.baseURL+"/open-apis/auth/v3/tenant_access_token/internal", "", payload, &out); err != nil {
		return "", err
	}
	if out.Code != 0 {
		return "", fmt.Errorf("get tenant access token: %s", out.Msg)
	}
	b.tokens.Add(tokenCacheKey, out.TenantAccessToken)
	logutil.GetLogger(ctx).Info("obtained lark tenant access token")
	return out.TenantAccessToken, nil
}

// ReplyText answers a message with a plain text bubble. When chatID is set
// the reply goes to the chat, otherwise it threads on the message id.
func (b *Bot) ReplyText(ctx context.Context, messageID, chatID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})
	return b.sendMessage(ctx, messageID, chatID, "text", content)
}

// ReplyCard answers a message with an interactive markdown card.
func (b *Bot) ReplyCard(ctx context.Context, messageID, chatID, title, markdown string) error {
	return b.sendMessage(ctx, messageID, chatID, "interactive", BuildCard(title, markdown))
}

func (b *Bot) sendMessage(ctx context.Context, messageID, chatID, msgType string, content []byte) error {
	token, err := b.tenantToken(ctx)
	if err != nil {
		return err
	}
	receiveID, receiveIDType := messageID, "message_id"
	if chatID != "" {
		receiveID, receiveIDType = chatID, "chat_id"
	}
	payload := map[string]string{
		"receive_id": receiveID,
		"msg_type":   msgType,
		"content":    string(content),
	}
	endpoint := b.baseURL + "/open-apis/im/v1/messages?receive_id_type=" + receiveIDType
	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := b.postJSON(ctx, endpoint, token, payload, &out); err != nil {
		return err
	}
	if out.Code != 0 {
		return fmt.Errorf("send lark reply: %s", out.Msg)
	}
	logutil.GetLogger(ctx).Info("sent lark reply",
		zap.String("receive_id_type", receiveIDType), zap.String("msg_type", msgType))
	return nil
}

func (b *Bot) postJSON(ctx context.Context, endpoint, token string, payload interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("lark request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
