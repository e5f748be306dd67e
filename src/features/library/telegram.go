package library

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chorale/src/music"
)

// TelegramHandler handles Telegram commands for the library feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the library feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes library-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "stats":
		return h.handleStats(bot, chatID)
	case "dirs":
		return h.handleDirs(bot, chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "❌ Unknown library command. Use /stats or /dirs")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"stats": "Show library statistics",
		"dirs":  "List registered media directories",
	}
}

// HandleCallback handles callback queries for this feature (library has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}

// handleStats shows library statistics
func (h *TelegramHandler) handleStats(bot *tgbotapi.BotAPI, chatID int64) error {
	stats, err := h.service.TrackStats(context.Background(), music.SearchFilter{})
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Failed to load library statistics")
		bot.Send(msg)
		return err
	}

	message := fmt.Sprintf("📊 *Library Statistics*\n\n🎵 Tracks: %d\n⏱ Play time: %s",
		stats.Count, music.FormatDuration(stats.TotalDuration))
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// handleDirs lists the registered media directories
func (h *TelegramHandler) handleDirs(bot *tgbotapi.BotAPI, chatID int64) error {
	dirs, err := h.service.ListDirectories(context.Background())
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "❌ Failed to load directories")
		bot.Send(msg)
		return err
	}

	var b strings.Builder
	b.WriteString("📁 *Media Directories*\n\n")
	if len(dirs) == 0 {
		b.WriteString("No directories registered")
	}
	for _, dir := range dirs {
		fmt.Fprintf(&b, "• `%s`\n", dir.Path)
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}
