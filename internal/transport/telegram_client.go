package transport

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

const defaultTelegramAPIURL = "https://api.telegram.org"

var ErrTelegramNotConfigured = errors.New("telegram client not configured")

// TelegramClient implementa Sender contra la Bot API de Telegram.
type TelegramClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramClient construye un cliente HTTP para la Bot API. El timeout del
// cliente debe superar el timeout de long polling usado en GetUpdates.
func NewTelegramClient(baseURL, token string, httpClient *http.Client, logger *zap.Logger) *TelegramClient {
	if baseURL == "" {
		baseURL = defaultTelegramAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
		logger:  logger,
	}
}

func (c *TelegramClient) Send(ctx context.Context, msg OutboundMessage) error {
	req := sendMessageRequest{
		ChatID: msg.ChatID,
		Text:   msg.Text,
	}
	if len(msg.Buttons) > 0 {
		row := make([]InlineKeyboardButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			row = append(row, InlineKeyboardButton{Text: b.Label, CallbackData: b.Payload})
		}
		req.ReplyMarkup = &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{row}}
	}
	return c.call(ctx, "sendMessage", req, nil)
}

func (c *TelegramClient) AckButton(ctx context.Context, buttonEventID string) error {
	if strings.TrimSpace(buttonEventID) == "" {
		return nil
	}
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{CallbackQueryID: buttonEventID}, nil)
}

// SetCommands publica la lista de comandos del bot.
func (c *TelegramClient) SetCommands(ctx context.Context, commands []Command) error {
	return c.call(ctx, "setMyCommands", setMyCommandsRequest{Commands: commands}, nil)
}

// GetUpdates hace long polling a partir de offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any, out any) error {
	if c == nil || c.token == "" {
		return ErrTelegramNotConfigured
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do %s: %w", method, redactToken(err, c.token))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return fmt.Errorf("unmarshal %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !ar.OK || resp.StatusCode >= 400 {
		c.logger.Warn("telegram api error",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.Int("error_code", ar.ErrorCode),
			zap.String("description", ar.Description),
		)
		return fmt.Errorf("telegram %s: status=%d: %s", method, resp.StatusCode, ar.Description)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(ar.Result, out); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}

// redactToken evita que el token del bot aparezca en errores de red (incluyen la URL).
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
