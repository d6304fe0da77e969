package config

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler serves the /config and /stores commands.
type TelegramHandler struct {
	configManager *Manager
}

// NewTelegramHandler creates a new Telegram handler for the config feature
func NewTelegramHandler(configManager *Manager) *TelegramHandler {
	return &TelegramHandler{configManager: configManager}
}

// HandleCommand processes config-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	var text string
	switch command {
	case "config":
		format := "yaml"
		body := h.configManager.GetYAML()
		if strings.TrimSpace(args) == "json" {
			format, body = "json", h.configManager.GetJSON()
		}
		text = fmt.Sprintf("⚙️ *Configuration (%s)*\n\n```%s\n%s\n```", format, format, body)
	case "stores":
		text = h.storesMessage()
	default:
		text = "❌ Unknown config command. Use /config or /stores"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"config": "Show configuration (use 'json' for JSON format)",
		"stores": "List configured stores",
	}
}

func (h *TelegramHandler) storesMessage() string {
	stores := h.configManager.Get().Stores
	if len(stores) == 0 {
		return "🏪 *No stores configured*"
	}
	var b strings.Builder
	b.WriteString("🏪 *Stores*\n\n")
	for _, s := range stores {
		fmt.Fprintf(&b, "`%s` %s every %ds (%s)\n", s.StoreID, s.WatchPath, s.PollIntervalSeconds, strings.Join(s.Patterns(), ", "))
	}
	return b.String()
}
