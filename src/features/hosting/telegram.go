package hosting

import (
	"fmt"
	"log/slog"

	"github.com/contre95/posxchange/src/features/config"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/contre95/posxchange/src/features/watching"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramCommandHandler interface that each feature implements
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string // Returns command -> description mapping
}

// TelegramBot handles Telegram bot operations
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	handlers map[string]TelegramCommandHandler
	commands map[string]string // command -> feature
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, jobService *jobs.Service, watchingService *watching.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}

	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	telegramBot := &TelegramBot{
		bot:      bot,
		config:   cfg,
		handlers: make(map[string]TelegramCommandHandler),
		commands: make(map[string]string),
		updates:  bot.GetUpdatesChan(updateConfig),
		stopChan: make(chan struct{}),
	}

	telegramBot.RegisterHandler("config", config.NewTelegramHandler(cfg))
	telegramBot.RegisterHandler("jobs", jobs.NewTelegramHandler(jobService))
	telegramBot.RegisterHandler("watching", watching.NewTelegramHandler(watchingService))

	return telegramBot, nil
}

// API returns the bot client, used to push notifications.
func (t *TelegramBot) API() *tgbotapi.BotAPI {
	return t.bot
}

// RegisterHandler registers a feature's command handler and the commands it serves.
func (t *TelegramBot) RegisterHandler(feature string, handler TelegramCommandHandler) {
	t.handlers[feature] = handler
	for command := range handler.GetCommands() {
		t.commands[command] = feature
	}
	slog.Debug("Registered Telegram handler", "feature", feature)
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update.Message)
			}
			if update.CallbackQuery != nil {
				go t.handleCallbackQuery(update.CallbackQuery)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			t.bot.StopReceivingUpdates()
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	close(t.stopChan)
}

// authorized reports whether chatID is the configured operator chat.
func (t *TelegramBot) authorized(chatID int64) bool {
	allowed := t.config.Get().Telegram.ChatID
	return allowed != 0 && allowed == chatID
}

func (t *TelegramBot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !t.authorized(chatID) {
		slog.Warn("Unauthorized chat", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: this chat is not configured")
		return
	}

	if !message.IsCommand() {
		t.sendMessage(chatID, "🤖 Send /menu or /help to see available options")
		return
	}

	command := message.Command()
	args := message.CommandArguments()
	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
	default:
		if err := t.routeCommand(command, args, chatID); err != nil {
			slog.Error("Failed to handle command", "command", command, "error", err)
			t.sendMessage(chatID, "❌ Failed to process command")
		}
	}
}

// routeCommand routes commands to the appropriate feature handler
func (t *TelegramBot) routeCommand(command, args string, chatID int64) error {
	feature, exists := t.commands[command]
	if !exists {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return nil
	}
	return t.handlers[feature].HandleCommand(t.bot, chatID, command, args)
}

// sendMessage sends a message to the specified chat
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

// handleCallbackQuery handles the main menu buttons.
func (t *TelegramBot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		slog.Debug("Failed to answer callback", "error", err)
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	if !t.authorized(chatID) {
		return
	}

	command := map[string]string{
		"menu_watchers": "watchers",
		"menu_jobs":     "jobs",
		"menu_config":   "config",
	}[callback.Data]
	if command == "" {
		return
	}
	if err := t.routeCommand(command, "", chatID); err != nil {
		slog.Error("Failed to handle menu command", "command", command, "error", err)
		t.sendMessage(chatID, "❌ Failed to process menu selection")
	}
}

// handleHelp shows the main menu and the command list.
func (t *TelegramBot) handleHelp(chatID int64) {
	text := "🤖 posxchange\n\nCommands:\n"
	for _, feature := range []string{"watching", "jobs", "config"} {
		handler, ok := t.handlers[feature]
		if !ok {
			continue
		}
		for command, description := range handler.GetCommands() {
			text += fmt.Sprintf("/%s - %s\n", command, description)
		}
	}

	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👀 Watchers", "menu_watchers"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Jobs", "menu_jobs"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Config", "menu_config"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = buttons
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send menu", "error", err, "chat_id", chatID)
	}
}
