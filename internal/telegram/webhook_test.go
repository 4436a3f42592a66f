package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/translitbot/internal/bot"
	mock_telegram "github.com/at-ishikawa/translitbot/internal/mocks/telegram"
)

type dispatcherFunc func(ctx context.Context, ev bot.Event) bot.Reply

func (f dispatcherFunc) Handle(ctx context.Context, ev bot.Event) bot.Reply {
	return f(ctx, ev)
}

func echoDispatcher(t *testing.T, want bot.Event) Dispatcher {
	return dispatcherFunc(func(_ context.Context, ev bot.Event) bot.Reply {
		assert.Equal(t, want, ev)
		return bot.Reply{Text: "echo: " + ev.Text}
	})
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		secret     string
		body       string
		dispatcher func(t *testing.T) Dispatcher
		setupMock  func(m *mock_telegram.MockSender)
		wantStatus int
	}{
		{
			name:   "text message is dispatched and answered",
			method: http.MethodPost,
			secret: "s3cret",
			body:   `{"update_id":1,"message":{"message_id":2,"from":{"id":7},"chat":{"id":70},"text":"Київ"}}`,
			dispatcher: func(t *testing.T) Dispatcher {
				return echoDispatcher(t, bot.Event{UserID: 7, Text: "Київ"})
			},
			setupMock: func(m *mock_telegram.MockSender) {
				m.EXPECT().SendReply(gomock.Any(), int64(70), bot.Reply{Text: "echo: Київ"}).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "document is downloaded before dispatch",
			method: http.MethodPost,
			secret: "s3cret",
			body:   `{"update_id":1,"message":{"message_id":2,"chat":{"id":70},"caption":"import","document":{"file_id":"f1","file_name":"d.txt"}}}`,
			dispatcher: func(t *testing.T) Dispatcher {
				return echoDispatcher(t, bot.Event{UserID: 70, Text: "import", Document: []byte("a = b"), DocumentName: "d.txt"})
			},
			setupMock: func(m *mock_telegram.MockSender) {
				m.EXPECT().DownloadFile(gomock.Any(), "f1").Return([]byte("a = b"), nil)
				m.EXPECT().SendReply(gomock.Any(), int64(70), bot.Reply{Text: "echo: import"}).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "failed download is reported without dispatching",
			method: http.MethodPost,
			secret: "s3cret",
			body:   `{"update_id":1,"message":{"message_id":2,"chat":{"id":70},"document":{"file_id":"f1"}}}`,
			dispatcher: func(t *testing.T) Dispatcher {
				return dispatcherFunc(func(context.Context, bot.Event) bot.Reply {
					t.Error("dispatcher must not be called")
					return bot.Reply{}
				})
			},
			setupMock: func(m *mock_telegram.MockSender) {
				m.EXPECT().DownloadFile(gomock.Any(), "f1").Return(nil, errors.New("timeout"))
				m.EXPECT().SendReply(gomock.Any(), int64(70), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "delivery failure does not fail the webhook",
			method: http.MethodPost,
			secret: "s3cret",
			body:   `{"update_id":1,"message":{"message_id":2,"from":{"id":7},"chat":{"id":70},"text":"x"}}`,
			dispatcher: func(t *testing.T) Dispatcher {
				return echoDispatcher(t, bot.Event{UserID: 7, Text: "x"})
			},
			setupMock: func(m *mock_telegram.MockSender) {
				m.EXPECT().SendReply(gomock.Any(), int64(70), gomock.Any()).Return(errors.New("blocked"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "update without message is acknowledged",
			method:     http.MethodPost,
			secret:     "s3cret",
			body:       `{"update_id":1}`,
			dispatcher: func(t *testing.T) Dispatcher { return nil },
			setupMock:  func(m *mock_telegram.MockSender) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong secret is rejected",
			method:     http.MethodPost,
			secret:     "wrong",
			body:       `{"update_id":1}`,
			dispatcher: func(t *testing.T) Dispatcher { return nil },
			setupMock:  func(m *mock_telegram.MockSender) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid json is rejected",
			method:     http.MethodPost,
			secret:     "s3cret",
			body:       `{`,
			dispatcher: func(t *testing.T) Dispatcher { return nil },
			setupMock:  func(m *mock_telegram.MockSender) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "get is not allowed",
			method:     http.MethodGet,
			dispatcher: func(t *testing.T) Dispatcher { return nil },
			setupMock:  func(m *mock_telegram.MockSender) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sender := mock_telegram.NewMockSender(ctrl)
			tt.setupMock(sender)

			handler := NewWebhookHandler(tt.dispatcher(t), sender, WithSecretToken("s3cret"))
			req := httptest.NewRequest(tt.method, "/webhook", strings.NewReader(tt.body))
			req.Header.Set(secretTokenHeader, tt.secret)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			handler.Wait()

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
