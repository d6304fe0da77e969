// Package notify pushes import failures to a Telegram chat.
package notify

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/watching"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers a Telegram message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier reports failed documents and watcher errors to one chat.
type Notifier struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender Sender, chatID int64, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, chatID: chatID, logger: logger}
}

// Subscribe registers the notifier for the events it reports.
func (n *Notifier) Subscribe(bus *watching.EventBus) {
	bus.Subscribe(watching.EventFileProcessed, n.Handle)
	bus.Subscribe(watching.EventFileError, n.Handle)
}

// Handle sends a message for failed results and processing errors. Other events are ignored.
func (n *Notifier) Handle(e watching.Event) {
	text := n.format(e)
	if text == "" {
		return
	}
	if _, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.logger.Warn("Notifier.Handle: failed to send telegram message", "store_id", e.StoreID, "error", err)
	}
}

func (n *Notifier) format(e watching.Event) string {
	name := filepath.Base(e.Path)
	switch {
	case e.Type == watching.EventFileError:
		return fmt.Sprintf("❌ Store %s: %s could not be processed\n%v", e.StoreID, name, e.Err)
	case e.Type == watching.EventFileProcessed && e.Result != nil && e.Result.Status == exchange.StatusFailed:
		msg := fmt.Sprintf("⚠️ Store %s: %s failed (%s)", e.StoreID, name, e.Result.DocumentType)
		if e.Result.ErrorMessage != "" {
			msg += "\n" + e.Result.ErrorMessage
		}
		if e.Result.MovedTo != "" {
			msg += "\nMoved to " + e.Result.MovedTo
		}
		return msg
	}
	return ""
}
