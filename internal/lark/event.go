package lark

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	EventTypeURLVerification = "url_verification"
	EventTypeMessageReceive  = "im.message.receive_v1"
)

// Event is the callback envelope Lark posts to the webhook endpoint. The
// url_verification handshake uses the flat fields; message events arrive
// under header/event.
type Event struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Header    struct {
		EventType string `json:"event_type"`
		Token     string `json:"token"`
	} `json:"header"`
	Event struct {
		Sender struct {
			SenderID struct {
				UserID string `json:"user_id"`
				OpenID string `json:"open_id"`
			} `json:"sender_id"`
		} `json:"sender"`
		Message struct {
			MessageID string `json:"message_id"`
			ChatID    string `json:"chat_id"`
			Content   string `json:"content"`
			Mentions  []struct {
				Name string `json:"name"`
			} `json:"mentions"`
		} `json:"message"`
	} `json:"event"`
}

func (e *Event) EventType() string {
	if e.Type != "" {
		return e.Type
	}
	return e.Header.EventType
}

func (e *Event) VerificationToken() string {
	if e.Token != "" {
		return e.Token
	}
	return e.Header.Token
}

// ParsedMessage is the flattened view of one incoming chat message.
type ParsedMessage struct {
	Text      string
	MessageID string
	ChatID    string
	UserID    string
	Mentions  []string
}

// ParseMessage extracts the message body from a receive event. The content
// field is itself a JSON blob; a text message carries {"text": "..."}.
func ParseMessage(event *Event) (*ParsedMessage, bool) {
	msg := event.Event.Message
	if msg.MessageID == "" {
		return nil, false
	}
	text := msg.Content
	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err == nil && content.Text != "" {
		text = content.Text
	}
	mentions := make([]string, 0, len(msg.Mentions))
	for _, m := range msg.Mentions {
		mentions = append(mentions, m.Name)
	}
	return &ParsedMessage{
		Text:      text,
		MessageID: msg.MessageID,
		ChatID:    msg.ChatID,
		UserID:    event.Event.Sender.SenderID.UserID,
		Mentions:  mentions,
	}, true
}

// IsMentioned reports whether the bot was addressed: an explicit @ of its
// name, the name appearing in the text, or any mention entity at all.
func IsMentioned(msg *ParsedMessage, botName string) bool {
	text := strings.ToLower(msg.Text)
	name := strings.ToLower(botName)
	return strings.Contains(text, "@"+name) ||
		strings.Contains(text, name) ||
		len(msg.Mentions) > 0
}

type Command struct {
	Command  string
	Category string
}

var mentionRe = regexp.MustCompile(`@\S+\s*`)

var newsCommands = []string{"news", "summary", "headlines"}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"business", []string{"business", "finance", "economy", "market"}},
	{"technology", []string{"tech", "technology", "ai", "software"}},
	{"world", []string{"world", "global", "international"}},
	{"sports", []string{"sports", "sport"}},
	{"entertainment", []string{"entertainment", "entertain"}},
	{"health", []string{"health", "medical"}},
	{"science", []string{"science", "scientific"}},
}

// ExtractNewsCommand looks for a news keyword and an optional category in
// the message text. The second return is false when the text carries no
// news keyword at all, i.e. the message is a question for the answerer.
func ExtractNewsCommand(text string) (Command, bool) {
	clean := strings.TrimSpace(mentionRe.ReplaceAllString(strings.ToLower(text), ""))

	var command string
	for _, cmd := range newsCommands {
		if strings.Contains(clean, cmd) {
			command = cmd
			break
		}
	}
	if command == "" {
		return Command{}, false
	}

	var category string
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(clean, keyword) {
				category = entry.category
				break
			}
		}
		if category != "" {
			break
		}
	}
	return Command{Command: command, Category: category}, true
}

// StripMentions removes @-mention markers, leaving the question text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}
