package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/at-ishikawa/translitbot/internal/bot"
	"github.com/at-ishikawa/translitbot/internal/observe"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
	deliveryTimeout   = time.Minute
)

// Dispatcher turns one event into one reply.
type Dispatcher interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

type WebhookOption func(*WebhookHandler)

// WithSecretToken rejects updates whose secret header does not match token.
func WithSecretToken(token string) WebhookOption {
	return func(h *WebhookHandler) {
		h.secretToken = token
	}
}

func WithMetrics(metrics *observe.Metrics) WebhookOption {
	return func(h *WebhookHandler) {
		h.metrics = metrics
	}
}

// WebhookHandler answers Telegram immediately and delivers replies in the
// background. Replies to the same chat from concurrent updates may arrive out
// of order. Events of one user are dispatched one at a time.
type WebhookHandler struct {
	dispatcher  Dispatcher
	sender      Sender
	secretToken string
	metrics     *observe.Metrics

	userLocks  sync.Map
	deliveries sync.WaitGroup
}

func NewWebhookHandler(dispatcher Dispatcher, sender Sender, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		dispatcher: dispatcher,
		sender:     sender,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secretToken != "" && r.Header.Get(secretTokenHeader) != h.secretToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		slog.Default().Warn("failed to decode update", "error", err)
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	if update.Message != nil {
		h.handleMessage(r.Context(), update.Message)
	}
	w.WriteHeader(http.StatusOK)
}

// Wait blocks until every background delivery has finished.
func (h *WebhookHandler) Wait() {
	h.deliveries.Wait()
}

func (h *WebhookHandler) handleMessage(ctx context.Context, message *Message) {
	ev := bot.Event{UserID: message.Chat.ID, Text: message.Text}
	if message.From != nil {
		ev.UserID = message.From.ID
	}

	var reply bot.Reply
	if message.Document != nil {
		content, err := h.sender.DownloadFile(ctx, message.Document.FileID)
		if err != nil {
			slog.Default().Error("failed to download document",
				"user_id", ev.UserID, "file_id", message.Document.FileID, "error", err)
			reply = bot.Reply{Text: "❌ Could not download the file, please send it again."}
			h.deliver(message.Chat.ID, reply)
			return
		}
		ev.Document = content
		ev.DocumentName = message.Document.FileName
		if ev.Text == "" {
			ev.Text = message.Caption
		}
	}

	unlock := h.lockUser(ev.UserID)
	reply = h.dispatcher.Handle(ctx, ev)
	unlock()

	h.deliver(message.Chat.ID, reply)
}

// deliver sends the reply without blocking the webhook response.
func (h *WebhookHandler) deliver(chatID int64, reply bot.Reply) {
	h.deliveries.Add(1)
	go func() {
		defer h.deliveries.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		err := h.sender.SendReply(ctx, chatID, reply)
		h.metrics.ObserveDelivery(err)
		if err != nil {
			slog.Default().Error("failed to deliver reply", "chat_id", chatID, "error", err)
		}
	}()
}

func (h *WebhookHandler) lockUser(userID int64) func() {
	v, _ := h.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
