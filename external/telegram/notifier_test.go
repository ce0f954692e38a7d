package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func samplePayload() alert.Payload {
	return alert.Payload{
		RuleName: "OU3",
		MatchID:  "m1",
		Detail:   "Over/Under Line: 4.00",
		Fields:   map[string]any{"line": 4.0, "threshold": 3.0},
	}
}

func TestNotifier_Notify(t *testing.T) {
	fake := &fakeSender{}
	n := &Notifier{bot: fake, chatID: 42, logger: logging.NewNop()}

	if err := n.Notify(context.Background(), samplePayload()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.sent))
	}

	msg := fake.sent[0]
	if msg.ChatID != 42 {
		t.Fatalf("unexpected chat id %d", msg.ChatID)
	}
	for _, want := range []string{"[OU3]", "m1", "Over/Under Line: 4.00", "line: 4", "threshold: 3"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("message missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestNotifier_SendErrorPropagates(t *testing.T) {
	fake := &fakeSender{err: errors.New("rate limited")}
	n := &Notifier{bot: fake, chatID: 42, logger: logging.NewNop()}

	if err := n.Notify(context.Background(), samplePayload()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatMessage_FieldOrderIsStable(t *testing.T) {
	first := formatMessage(samplePayload())
	second := formatMessage(samplePayload())
	if first != second {
		t.Fatalf("unstable formatting:\n%s\n%s", first, second)
	}
}
