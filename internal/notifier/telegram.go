// Package notifier доставляет готовые части сообщений пользователю.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const defaultTelegramURL = "https://api.telegram.org"

// Telegram отправляет сообщения через Bot API. chat_id совпадает с id пользователя.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
	token  string
}

// NewTelegram создаёт клиента Bot API. getMe не вызывается, токен
// проверяется первой отправкой.
func NewTelegram(baseURL, token string, timeout time.Duration) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot := &tgbotapi.BotAPI{Token: token, Buffer: 100}
	bot.SetAPIEndpoint(strings.TrimRight(baseURL, "/") + "/bot%s/%s")
	return &Telegram{
		bot:    bot,
		client: &http.Client{Timeout: timeout},
		token:  token,
	}
}

// ctxClient привязывает запросы библиотеки к ctx вызова.
type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// Send отправляет text одним сообщением. Если пользователь заблокировал бота
// или чат не существует, ошибка оборачивает models.ErrUndeliverable.
func (t *Telegram) Send(ctx context.Context, userID int64, text string) error {
	const op = "notifier.Telegram.Send"

	bot := *t.bot
	bot.Client = ctxClient{ctx: ctx, client: t.client}

	if _, err := bot.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			if undeliverable(apiErr) {
				return fmt.Errorf("%s: %w: %d %s", op, models.ErrUndeliverable, apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("%s: %d %s", op, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%s: %w", op, redact(err, t.token))
	}
	return nil
}

// undeliverable 403 приходит, когда бот заблокирован или пользователь удалён.
func undeliverable(err *tgbotapi.Error) bool {
	if err.Code == http.StatusForbidden {
		return true
	}
	msg := strings.ToLower(err.Message)
	return err.Code == http.StatusBadRequest &&
		(strings.Contains(msg, "chat not found") || strings.Contains(msg, "user is deactivated"))
}

// redactedError текст ошибки без токена, исходная ошибка доступна через errors.Is.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// redact убирает токен бота из текста ошибки, url.Error содержит полный адрес.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "***"), err: err}
}
