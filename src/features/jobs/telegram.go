package jobs

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxListedJobs = 10

// TelegramHandler serves the /jobs, /job and /cancel commands.
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the jobs feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes jobs-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	id := strings.TrimSpace(args)
	var text string
	switch {
	case command == "jobs":
		text = h.listMessage()
	case command == "job" && id != "":
		text = h.detailMessage(id)
	case command == "cancel" && id != "":
		if err := h.service.CancelJob(id); err != nil {
			text = fmt.Sprintf("❌ Cannot cancel `%s`: %v", id, err)
		} else {
			text = fmt.Sprintf("🚫 Job `%s` cancelled", id)
		}
	default:
		text = "Usage: /jobs, /job <id>, /cancel <id>"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"jobs":   "Show recent jobs",
		"job":    "Show one job and its results",
		"cancel": "Cancel a pending or running job",
	}
}

func (h *TelegramHandler) listMessage() string {
	jobs := h.service.GetJobs()
	if len(jobs) == 0 {
		return "📋 *No jobs*"
	}
	var b strings.Builder
	b.WriteString("📋 *Jobs*\n\n")
	for i, job := range jobs {
		if i == maxListedJobs {
			fmt.Fprintf(&b, "… and %d more\n", len(jobs)-maxListedJobs)
			break
		}
		fmt.Fprintf(&b, "%s `%s` %s: %s (%d%%)\n", statusEmoji(job.Status), job.ID[:8], job.Name, job.Message, job.Progress)
	}
	return b.String()
}

func (h *TelegramHandler) detailMessage(id string) string {
	job, ok := h.service.GetJob(id)
	if !ok {
		job, ok = h.byPrefix(id)
	}
	if !ok {
		return fmt.Sprintf("❓ Job `%s` not found", id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n`%s`\n%s\n", statusEmoji(job.Status), job.Name, job.ID, job.Message)
	keys := make([]string, 0, len(job.Metadata))
	for k := range job.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "results" {
			continue
		}
		fmt.Fprintf(&b, "• %s: %v\n", k, job.Metadata[k])
	}
	return b.String()
}

// byPrefix resolves the short ids printed by /jobs.
func (h *TelegramHandler) byPrefix(prefix string) (*Job, bool) {
	for _, job := range h.service.GetJobs() {
		if strings.HasPrefix(job.ID, prefix) {
			return job, true
		}
	}
	return nil, false
}

func statusEmoji(status JobStatus) string {
	switch status {
	case JobStatusPending:
		return "⏳"
	case JobStatusRunning:
		return "🔄"
	case JobStatusCompleted:
		return "✅"
	case JobStatusFailed:
		return "❌"
	case JobStatusCancelled:
		return "🚫"
	default:
		return "❓"
	}
}
