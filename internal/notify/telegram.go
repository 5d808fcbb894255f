// Package notify sends run summaries to Telegram. Delivery is best effort:
// failures are logged, never propagated, so notifications can't break a
// trading cycle.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Notifier posts messages to one Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewNotifier creates a notifier, or returns an error when the bot token is
// rejected by the Telegram API.
func NewNotifier(token string, chatID int64, logger zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "notify").Logger(),
	}, nil
}

// Send posts a plain-text message, logging any delivery failure.
func (n *Notifier) Send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("telegram send failed")
	}
}

// SendSignals formats a scan result into one message. NONE signals are
// summarized as a count; actionable ones get full detail.
func (n *Notifier) SendSignals(signals []*models.Signal) {
	var b strings.Builder
	var quiet int
	for _, sig := range signals {
		if !sig.Actionable() {
			quiet++
			continue
		}
		fmt.Fprintf(&b, "%s %s @ %.5f (SL %.5f, TP %.5f, %d units, SSI %.2f)\n",
			sig.Side, sig.Instrument, sig.EntryPrice, sig.SLPrice, sig.TPPrice, sig.Units, sig.SSI)
	}
	if b.Len() == 0 {
		n.Send(fmt.Sprintf("Scan complete: no actionable signals (%d instruments quiet)", quiet))
		return
	}
	if quiet > 0 {
		fmt.Fprintf(&b, "(%d instruments quiet)", quiet)
	}
	n.Send(b.String())
}
