// Package telegram sends arbitrage-opportunity notifications via the
// Telegram Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/joehsu/openclaw/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a cycle-failure notification.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Dashboard cycle error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendOpportunities sends the cycle's arbitrage opportunities, best edge
// first.
func (c *Client) SendOpportunities(events []models.MarketEvent, detectedAt time.Time) error {
	return c.sendMarkdownV2(c.formatMessage(events, detectedAt))
}

// formatMessage formats opportunities into a Telegram MarkdownV2 message.
func (c *Client) formatMessage(events []models.MarketEvent, detectedAt time.Time) string {
	message := "💰 *Arbitrage Opportunities*\n\n"
	message += fmt.Sprintf("📅 Detected: %s\n\n", escapeMarkdownV2(detectedAt.Format("2006-01-02 15:04:05")))

	for i, e := range events {
		title := escapeMarkdownV2(e.Title)
		edge := escapeMarkdownV2(fmt.Sprintf("%.2f%%", e.EdgePct()))
		bundle := escapeMarkdownV2(fmt.Sprintf("%.3f", e.BundleCost()))
		asks := escapeMarkdownV2(fmt.Sprintf("%.3f / %.3f", e.YesAsk, e.NoAsk))

		message += fmt.Sprintf("%d\\. %s\n", i+1, title)
		message += fmt.Sprintf("   🎯 Edge *%s* \\(bundle %s, asks %s\\)\n\n", edge, bundle, asks)
	}

	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
