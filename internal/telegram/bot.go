package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.telegram.org"

// Bot — клиент Telegram Bot API
type Bot struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Option настраивает Bot
type Option func(*Bot)

// WithBaseURL задает адрес Bot API
func WithBaseURL(baseURL string) Option {
	return func(b *Bot) { b.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient задает HTTP клиент
func WithHTTPClient(client *http.Client) Option {
	return func(b *Bot) { b.client = client }
}

// WithLogger задает логгер
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// New создает новый Telegram бот
func New(token string, opts ...Option) *Bot {
	b := &Bot{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// APIError — ошибка, которую вернул Bot API
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Telegram API вернул ошибку в %s: %d %s", e.Method, e.Code, e.Description)
}

func (b *Bot) call(ctx context.Context, method string, payload any, result any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response APIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("ошибка парсинга JSON: %w", err)
	}

	if !response.OK {
		return &APIError{Method: method, Code: response.ErrorCode, Description: response.Description}
	}

	if result != nil && len(response.Result) > 0 {
		if err := json.Unmarshal(response.Result, result); err != nil {
			return fmt.Errorf("ошибка парсинга результата %s: %w", method, err)
		}
	}

	return nil
}

// GetUpdates получает обновления от Telegram
func (b *Bot) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := b.call(ctx, "getUpdates", GetUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message", "callback_query"},
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage отправляет HTML сообщение пользователю
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	return b.call(ctx, "sendMessage", SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}, nil)
}

// Send отправляет текст без кнопок
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	return b.SendMessage(ctx, chatID, text, nil)
}

// EditMessageText заменяет текст сообщения с кнопками
func (b *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) error {
	return b.call(ctx, "editMessageText", EditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	}, nil)
}

// AnswerCallbackQuery подтверждает нажатие кнопки
func (b *Bot) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return b.call(ctx, "answerCallbackQuery", AnswerCallbackQueryRequest{CallbackQueryID: callbackID}, nil)
}

// StartPolling получает обновления до отмены ctx и передает каждое в handler
func (b *Bot) StartPolling(ctx context.Context, timeout time.Duration, handler func(Update)) error {
	offset := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("failed to get updates", zap.Error(err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			handler(update)
		}
	}
}
