package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/lark"
	"github.com/xxxsen/compbot/internal/service"
)

const eventProcessTimeout = 2 * time.Minute

// LarkHandler receives event callbacks from the Lark open platform. Lark
// retries any non-200 response, so the handler always acks and keeps
// processing failures to itself.
type LarkHandler struct {
	answerer          *service.AnswerService
	news              *service.NewsService
	bot               *lark.Bot
	verificationToken string
	botName           string
}

func NewLarkHandler(answerer *service.AnswerService, news *service.NewsService, bot *lark.Bot, verificationToken, botName string) *LarkHandler {
	return &LarkHandler{
		answerer:          answerer,
		news:              news,
		bot:               bot,
		verificationToken: verificationToken,
		botName:           botName,
	}
}

func (h *LarkHandler) Events(c *gin.Context) {
	var event lark.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if h.verificationToken != "" && event.VerificationToken() != h.verificationToken {
		logutil.GetLogger(c.Request.Context()).Warn("lark event with bad verification token")
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	switch event.EventType() {
	case lark.EventTypeURLVerification:
		// The handshake expects the challenge echoed back as plain JSON.
		c.JSON(http.StatusOK, gin.H{"challenge": event.Challenge})
	case lark.EventTypeMessageReceive:
		if msg, ok := lark.ParseMessage(&event); ok {
			// Ack before the pipeline runs; Lark redelivers slow events.
			go h.process(msg)
		}
		c.JSON(http.StatusOK, gin.H{})
	default:
		c.JSON(http.StatusOK, gin.H{})
	}
}

func (h *LarkHandler) process(msg *lark.ParsedMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), eventProcessTimeout)
	defer cancel()
	logger := logutil.GetLogger(ctx).With(zap.String("message_id", msg.MessageID))

	// In a group chat the bot only speaks when spoken to.
	if !lark.IsMentioned(msg, h.botName) {
		return
	}
	if !h.bot.Configured() {
		logger.Warn("lark bot credentials not configured, skip reply")
		return
	}

	if cmd, ok := lark.ExtractNewsCommand(msg.Text); ok {
		if err := h.bot.ReplyText(ctx, msg.MessageID, "", "Fetching latest news summary..."); err != nil {
			logger.Warn("lark ack failed", zap.Error(err))
		}
		digest, err := h.news.Run(ctx, cmd.Category)
		if err != nil {
			logger.Error("news digest for chat failed", zap.Error(err))
			if err := h.bot.ReplyText(ctx, msg.MessageID, "", "Sorry, I couldn't fetch the news right now. Please try again later."); err != nil {
				logger.Error("lark reply failed", zap.Error(err))
			}
			return
		}
		title := "Daily News Summary - " + time.Now().Format("2006-01-02")
		if err := h.bot.ReplyCard(ctx, msg.MessageID, "", title, digest.Summary); err != nil {
			logger.Error("lark reply failed", zap.Error(err))
		}
		return
	}

	question := lark.StripMentions(msg.Text)
	if question == "" {
		return
	}
	answer := h.answerer.Answer(ctx, question)
	var sb strings.Builder
	sb.WriteString(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintf(&sb, "\n\n**Sources:** %s", strings.Join(answer.Sources, ", "))
	}
	fmt.Fprintf(&sb, "\n**Confidence:** %s", answer.Confidence)
	fmt.Fprintf(&sb, "\n\n_%s_", answer.Disclaimer)
	if err := h.bot.ReplyCard(ctx, msg.MessageID, "", "Compliance Answer", sb.String()); err != nil {
		logger.Error("lark reply failed", zap.Error(err))
	}
}
