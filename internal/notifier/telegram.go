package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// TelegramConfig параметры бота
type TelegramConfig struct {
	Token   string
	ChatID  int64
	APIURL  string
	Timeout time.Duration
}

// TelegramNotifier отправляет текст уведомления в чат
type TelegramNotifier struct {
	base
	bot    *tele.Bot
	chatID int64
}

// NewTelegramNotifier создает бота в offline режиме: без getMe и без поллинга
func NewTelegramNotifier(config TelegramConfig, log logger.Logger) (*TelegramNotifier, error) {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   config.Token,
		URL:     config.APIURL,
		Offline: true,
		Client:  &http.Client{Timeout: config.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		base:   newBase("telegram", log),
		bot:    bot,
		chatID: config.ChatID,
	}, nil
}

// Notify отправляет сообщение. telebot не принимает контекст, ограничение по времени
// задает таймаут HTTP клиента.
func (t *TelegramNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	if err := ctx.Err(); err != nil {
		return t.fail(result, err)
	}

	if _, err := t.bot.Send(tele.ChatID(t.chatID), AlertBody(result)); err != nil {
		return t.fail(result, err)
	}

	t.delivered(result)
	return nil
}
