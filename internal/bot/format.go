package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autofilter/internal/chat"
	"autofilter/internal/store"
)

// formatResults renders a ranked result set as a numbered list with one
// deep-link button per row.
func (b *Bot) formatResults(ctx context.Context, query string, results []store.MediaRecord) (string, tgbotapi.InlineKeyboardMarkup) {
	text := "✨ Found results for: " + query + "\n\n"
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(results)+1)

	for i, rec := range results {
		url := b.links.Build(ctx, chat.RefFromID(rec.ChannelID), rec.MessageID)
		text += fmt.Sprintf("%d. %s [%s]\n", i+1, rec.FileName, readableSize(rec.FileSize))
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL(
				fmt.Sprintf("%d. %s", i+1, truncate(rec.FileName, 40)), url),
		})
	}
	if b.cfg.RequestMovieURL != "" {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL(b.cfg.RequestMovieButtonText, b.cfg.RequestMovieURL),
		})
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// readableSize formats a byte count for display; 0 means unknown size.
func readableSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
