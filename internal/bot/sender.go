package bot

import (
	"strings"
	"time"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender wraps api.Send with retry on 429 (Too Many Requests).
type Sender struct {
	api        *tgbotapi.BotAPI
	log        *zap.Logger
	logChannel int64
}

func NewSender(api *tgbotapi.BotAPI, logChannel int64, log *zap.Logger) *Sender {
	return &Sender{api: api, logChannel: logChannel, log: log}
}

const maxRetries = 3

// Send delivers any Chattable, retrying on rate limit.
func (s *Sender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		msg, err = s.api.Send(c)
		if err == nil {
			return msg, nil
		}
		if !isRateLimited(err) {
			return msg, err
		}
		wait := retryAfter(attempt)
		s.log.Warn("rate limited by Telegram, waiting",
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt),
		)
		time.Sleep(wait)
	}
	return msg, err
}

// Text sends a plain text message, logging delivery failures instead of
// returning them.
func (s *Sender) Text(chatID int64, text string) {
	if _, err := s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.log.Warn("failed to send text message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// Edit replaces the text of an already sent message. Used for live progress
// reports; failures are logged and ignored.
func (s *Sender) Edit(chatID int64, messageID int, text string) {
	if _, err := s.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		s.log.Warn("failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
	}
}

// Report forwards an operational status line to the log channel, if one is
// configured. Never fails the caller.
func (s *Sender) Report(text string) {
	if s.logChannel == 0 {
		s.log.Info("status report", zap.String("text", text))
		return
	}
	msg := tgbotapi.NewMessage(s.logChannel, text)
	msg.DisableWebPagePreview = true
	if _, err := s.Send(msg); err != nil {
		s.log.Error("failed to report to log channel",
			zap.Int64("log_channel", s.logChannel),
			zap.Error(err),
		)
	}
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "retry after")
}

// retryAfter backs off progressively between attempts.
func retryAfter(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 3 * time.Second
	case 2:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}
