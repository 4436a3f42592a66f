package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/translitbot/internal/bot"
)

const testToken = "123:abc"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, testToken, 2)
	client.retryDelay = time.Millisecond
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	require.NoError(t, err)
}

func TestClient_SendReply(t *testing.T) {
	tests := []struct {
		name      string
		reply     bot.Reply
		responses []int
		wantCalls int32
		wantError bool
	}{
		{
			name:      "text with keyboard",
			reply:     bot.Reply{Text: "`kyiv`", Keyboard: [][]string{{"📖 List", "➕ Add"}}},
			responses: []int{http.StatusOK},
			wantCalls: 1,
		},
		{
			name:      "server errors are retried",
			reply:     bot.Reply{Text: "hi"},
			responses: []int{http.StatusInternalServerError, http.StatusTooManyRequests, http.StatusOK},
			wantCalls: 3,
		},
		{
			name:      "retries are bounded",
			reply:     bot.Reply{Text: "hi"},
			responses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway, http.StatusOK},
			wantCalls: 3,
			wantError: true,
		},
		{
			name:      "client errors are not retried",
			reply:     bot.Reply{Text: "hi"},
			responses: []int{http.StatusForbidden, http.StatusOK},
			wantCalls: 1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				assert.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)

				var request SendMessageRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
				assert.Equal(t, int64(10), request.ChatID)
				assert.Equal(t, tt.reply.Text, request.Text)
				assert.Equal(t, parseModeMarkdown, request.ParseMode)
				if len(tt.reply.Keyboard) > 0 {
					require.NotNil(t, request.ReplyMarkup)
					assert.Equal(t, "➕ Add", request.ReplyMarkup.Keyboard[0][1].Text)
				}

				status := tt.responses[n-1]
				if status == http.StatusOK {
					writeJSON(t, w, status, `{"ok":true,"result":{"message_id":1}}`)
					return
				}
				writeJSON(t, w, status, fmt.Sprintf(`{"ok":false,"error_code":%d,"description":"failure"}`, status))
			})

			err := client.SendReply(context.Background(), 10, tt.reply)
			if tt.wantError {
				var apiErr *APIError
				assert.ErrorAs(t, err, &apiErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_SendMessageFallsBackToPlainText(t *testing.T) {
	var parseModes []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var request SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		parseModes = append(parseModes, request.ParseMode)

		if request.ParseMode != "" {
			writeJSON(t, w, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: unclosed tag"}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"ok":true,"result":{}}`)
	})

	require.NoError(t, client.SendMessage(context.Background(), 1, "snake_case_word", nil))
	assert.Equal(t, []string{parseModeMarkdown, ""}, parseModes)
}

func TestClient_SendDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "5", r.FormValue("chat_id"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "dictionary.txt", header.Filename)
		assert.Equal(t, "київ = kyiv\n", string(content))

		writeJSON(t, w, http.StatusOK, `{"ok":true,"result":{}}`)
	})

	err := client.SendReply(context.Background(), 5, bot.Reply{
		Attachment: &bot.Attachment{Name: "dictionary.txt", Content: []byte("київ = kyiv\n")},
	})
	assert.NoError(t, err)
}

func TestClient_DownloadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot" + testToken + "/getFile":
			var request map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
			assert.Equal(t, "file-1", request["file_id"])
			writeJSON(t, w, http.StatusOK, `{"ok":true,"result":{"file_id":"file-1","file_path":"documents/file_1.txt"}}`)
		case "/file/bot" + testToken + "/documents/file_1.txt":
			_, _ = io.WriteString(w, "київ = kyiv\n")
		default:
			http.NotFound(w, r)
		}
	})

	content, err := client.DownloadFile(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, "київ = kyiv\n", string(content))
}

func TestClient_DownloadFileNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
	})

	_, err := client.DownloadFile(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Request: invalid file_id", apiErr.Description)
}

func TestClient_SetWebhook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/setWebhook", r.URL.Path)
		var request SetWebhookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, SetWebhookRequest{URL: "https://example.com/webhook", SecretToken: "s3cret"}, request)
		writeJSON(t, w, http.StatusOK, `{"ok":true,"result":true}`)
	})

	assert.NoError(t, client.SetWebhook(context.Background(), "https://example.com/webhook", "s3cret"))
}
