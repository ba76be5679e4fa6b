package alert

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/wb-go/wbf/zlog"
)

// TelegramAlerter pings an ops chat when a claimed dispatch ends with an
// error. Unconfigured (empty token or zero chat id) it is a no-op.
type TelegramAlerter struct {
	cfg Config
}

type Config struct {
	BotToken  string
	OpsChatID int64
}

func NewTelegramAlerter(cfg Config) *TelegramAlerter {
	return &TelegramAlerter{cfg: cfg}
}

func (a *TelegramAlerter) DispatchFailed(ctx context.Context, notificationID, reason string) error {
	if a.cfg.BotToken == "" || a.cfg.OpsChatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", notificationID).Msg("Failed to create Telegram bot")
		return err
	}
	text := fmt.Sprintf("Notification dispatch %s failed: %s", notificationID, reason)
	msg := tgbotapi.NewMessage(a.cfg.OpsChatID, text)
	zlog.Logger.Info().
		Int64("chat_id", a.cfg.OpsChatID).
		Str("id", notificationID).
		Msg("Sending dispatch failure alert")
	_, err = bot.Send(msg)
	return err
}
