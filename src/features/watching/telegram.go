package watching

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the watching feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the watching feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes watcher-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "watchers":
		return h.send(bot, chatID, h.statusMessage())
	case "restart":
		storeID := strings.TrimSpace(args)
		if storeID == "" {
			return h.send(bot, chatID, "Usage: /restart <store_id>")
		}
		if err := h.service.RestartWatcher(context.Background(), storeID); err != nil {
			return h.send(bot, chatID, fmt.Sprintf("❌ Restart failed: %v", err))
		}
		return h.send(bot, chatID, fmt.Sprintf("🔄 Watcher `%s` restarted", storeID))
	default:
		return h.send(bot, chatID, "❌ Unknown watcher command. Use /watchers")
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"watchers": "Show store watchers",
		"restart":  "Restart a store watcher",
	}
}

func (h *TelegramHandler) statusMessage() string {
	statuses := h.service.GetAllStatuses()
	if len(statuses) == 0 {
		return "👀 *No watchers registered*"
	}
	var b strings.Builder
	b.WriteString("👀 *Watchers*\n\n")
	for _, st := range statuses {
		icon := "⏹"
		if st.IsRunning {
			icon = "▶️"
		}
		fmt.Fprintf(&b, "%s `%s`: %d processed, %d errored\n", icon, st.StoreID, st.FilesProcessed, st.FilesErrored)
	}
	return b.String()
}

func (h *TelegramHandler) send(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}
