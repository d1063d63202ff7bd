package notify

import (
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dday-keeper/internal/scheduler"
)

// TelegramSink pushes alerts to a Telegram chat, for setups where the
// device's own notification surface is not enough.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &TelegramSink{api: api, chatID: chatID}, nil
}

func (s *TelegramSink) Deliver(a scheduler.Alert) error {
	var when string
	if a.DaysUntil == 0 {
		when = "<b>D-DAY</b> — today"
	} else {
		when = fmt.Sprintf("<b>D-%d</b> — tomorrow", a.DaysUntil)
	}

	msg := tgbotapi.NewMessage(s.chatID, fmt.Sprintf("%s %s\n%s", a.Icon, html.EscapeString(a.Title), when))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = !a.Sound
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}
