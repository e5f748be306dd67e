package scanning

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the scanning feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the scanning feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes scanning-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "rescan":
		return h.handleRescan(bot, chatID)
	case "scanstatus":
		return h.handleStatus(bot, chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "❌ Unknown scan command. Use /rescan or /scanstatus")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"rescan":     "Request a library rescan",
		"scanstatus": "Show scan status",
	}
}

// HandleCallback handles callback queries for this feature (scanning has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}

func (h *TelegramHandler) handleRescan(bot *tgbotapi.BotAPI, chatID int64) error {
	if err := h.service.RequestScan(context.Background()); err != nil {
		bot.Send(tgbotapi.NewMessage(chatID, "❌ Failed to request scan"))
		return err
	}
	msg := tgbotapi.NewMessage(chatID, "🔄 Rescan requested")
	bot.Send(msg)
	return nil
}

func (h *TelegramHandler) handleStatus(bot *tgbotapi.BotAPI, chatID int64) error {
	status := h.service.Status()

	message := fmt.Sprintf("🔎 *Scan Status*\n\nRunning: %v\nScanning: %v", status.Running, status.Scanning)
	if status.LastScan != nil {
		message += fmt.Sprintf("\n\nLast scan: %d added, %d updated, %d removed",
			status.LastScan.Added, status.LastScan.Updated, status.LastScan.Removed)
	}
	if status.LastErr != "" {
		message += "\nLast error: " + status.LastErr
	}

	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}
