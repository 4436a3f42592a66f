package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/translitbot/internal/bot"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const parseModeMarkdown = "Markdown"

// Sender is the outbound side the webhook handler depends on.
//
//go:generate mockgen -source=client.go -destination=../mocks/telegram/mock_sender.go -package=mock_telegram Sender
type Sender interface {
	SendReply(ctx context.Context, chatID int64, reply bot.Reply) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type Client struct {
	httpClient       *resty.Client
	fileURL          string
	maxRetryAttempts uint
	retryDelay       time.Duration
}

func NewClient(apiURL, token string, retryAttempts uint) *Client {
	apiURL = strings.TrimSuffix(apiURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	client := resty.New()
	client.SetBaseURL(apiURL + "/bot" + token)
	client.SetTimeout(30 * time.Second)

	return &Client{
		httpClient:       client,
		fileURL:          apiURL + "/file/bot" + token,
		maxRetryAttempts: retryAttempts,
		retryDelay:       100 * time.Millisecond,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

// SendReply delivers the text with its keyboard, then the attachment if any.
func (client *Client) SendReply(ctx context.Context, chatID int64, reply bot.Reply) error {
	if reply.Text != "" {
		if err := client.SendMessage(ctx, chatID, reply.Text, reply.Keyboard); err != nil {
			return fmt.Errorf("client.SendMessage > %w", err)
		}
	}
	if reply.Attachment != nil {
		if err := client.SendDocument(ctx, chatID, reply.Attachment.Name, reply.Attachment.Content); err != nil {
			return fmt.Errorf("client.SendDocument > %w", err)
		}
	}
	return nil
}

// SendMessage sends Markdown text and resends it as plain text when Telegram
// cannot parse the markup.
func (client *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error {
	request := SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   parseModeMarkdown,
		ReplyMarkup: keyboardMarkup(keyboard),
	}
	err := client.withRetry(ctx, func() error {
		return client.call(ctx, "/sendMessage", request, nil)
	})

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 400 && strings.Contains(apiErr.Description, "parse entities") {
		slog.Default().Debug("resending message without markup", "chat_id", chatID, "error", err)
		request.ParseMode = ""
		err = client.withRetry(ctx, func() error {
			return client.call(ctx, "/sendMessage", request, nil)
		})
	}
	return err
}

func (client *Client) SendDocument(ctx context.Context, chatID int64, name string, content []byte) error {
	return client.withRetry(ctx, func() error {
		response, err := client.httpClient.R().
			SetContext(ctx).
			SetFormData(map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}).
			SetFileReader("document", name, bytes.NewReader(content)).
			Post("/sendDocument")
		if err != nil {
			return fmt.Errorf("httpClient.Post(/sendDocument) > %w", err)
		}
		return decode(response.StatusCode(), response.Bytes(), nil)
	})
}

// DownloadFile resolves fileID with getFile and fetches its content.
func (client *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var file File
	if err := client.withRetry(ctx, func() error {
		return client.call(ctx, "/getFile", map[string]string{"file_id": fileID}, &file)
	}); err != nil {
		return nil, fmt.Errorf("getFile(%s) > %w", fileID, err)
	}

	var content []byte
	if err := client.withRetry(ctx, func() error {
		response, err := client.httpClient.R().
			SetContext(ctx).
			Get(client.fileURL + "/" + file.FilePath)
		if err != nil {
			return fmt.Errorf("httpClient.Get(%s) > %w", file.FilePath, err)
		}
		if response.IsError() {
			return &APIError{StatusCode: response.StatusCode(), Description: response.String()}
		}
		content = response.Bytes()
		return nil
	}); err != nil {
		return nil, fmt.Errorf("download(%s) > %w", file.FilePath, err)
	}
	return content, nil
}

// SetWebhook registers url so that Telegram pushes updates to it.
func (client *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	return client.withRetry(ctx, func() error {
		return client.call(ctx, "/setWebhook", SetWebhookRequest{URL: url, SecretToken: secretToken}, nil)
	})
}

func (client *Client) call(ctx context.Context, method string, body any, result any) error {
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(method)
	if err != nil {
		return fmt.Errorf("httpClient.Post(%s) > %w", method, err)
	}
	return decode(response.StatusCode(), response.Bytes(), result)
}

func decode(statusCode int, body []byte, result any) error {
	var envelope APIResponse[json.RawMessage]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &APIError{StatusCode: statusCode, Description: fmt.Sprintf("json.Unmarshal > %v", err)}
	}
	if !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = statusCode
		}
		return &APIError{StatusCode: code, Description: envelope.Description}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("json.Unmarshal(result) > %w", err)
	}
	return nil
}

func (client *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			err := fn()
			if err != nil && !isRetryableError(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.Delay(client.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func isRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "connection reset")
}
