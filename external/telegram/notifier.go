package telegram

import (
	"context"
	"fmt"
	"sort"

	crerr "github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// sender is the small slice of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier dispatches alert payloads to one Telegram chat.
type Notifier struct {
	bot    sender
	chatID int64
	logger *logging.Logger
}

func NewNotifier(botToken string, chatID int64, logger *logging.Logger) (*Notifier, error) {
	if logger == nil {
		logger = logging.Default()
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, crerr.Wrap(err, "create telegram bot")
	}

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Notify formats and sends one alert message. Errors bubble up to the
// caller, which logs without retrying.
func (n *Notifier) Notify(ctx context.Context, payload alert.Payload) error {
	msg := tgbotapi.NewMessage(n.chatID, formatMessage(payload))
	if _, err := n.bot.Send(msg); err != nil {
		return crerr.Wrapf(err, "send alert for match %q", payload.MatchID)
	}

	n.logger.DebugContext(ctx, "alert delivered to telegram",
		"rule", payload.RuleName,
		"match_id", payload.MatchID,
	)
	return nil
}

func formatMessage(payload alert.Payload) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("[")
	_, _ = buf.WriteString(payload.RuleName)
	_, _ = buf.WriteString("] match ")
	_, _ = buf.WriteString(payload.MatchID)
	if payload.Detail != "" {
		_, _ = buf.WriteString("\n")
		_, _ = buf.WriteString(payload.Detail)
	}

	keys := make([]string, 0, len(payload.Fields))
	for key := range payload.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = buf.WriteString(fmt.Sprintf("\n%s: %v", key, payload.Fields[key]))
	}

	return buf.String()
}
