package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdesk/models"
)

type staticUsers map[uint]*models.User

func (s staticUsers) FindUser(ctx context.Context, id uint) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, io.EOF
	}
	return u, nil
}

func chatID(id string) *string { return &id }

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var (
		gotPath string
		gotBody telegramMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	users := staticUsers{1: {TelegramChatID: chatID("12345")}}
	notifier := NewTelegramNotifier(users, "TOKEN", server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := notifier.Notify(ctx, NewNotification(1, NotificationNewLead, "My Store", map[string]interface{}{
		"order_total": "42.50",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "12345", gotBody.ChatID)
	assert.Contains(t, gotBody.Text, "New lead from My Store")
	assert.Contains(t, gotBody.Text, "order_total: 42.50")
}

func TestTelegramNotifierReportsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	users := staticUsers{1: {TelegramChatID: chatID("999")}}
	notifier := NewTelegramNotifier(users, "TOKEN", server.URL)

	err := notifier.Notify(context.Background(), NewNotification(1, NotificationNewCustomer, "s", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramNotifierSkipsUsersWithoutChat(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier := NewTelegramNotifier(staticUsers{1: {}}, "TOKEN", server.URL)
	require.NoError(t, notifier.Notify(context.Background(), NewNotification(1, NotificationNewLead, "s", nil)))
	assert.False(t, called)

	assert.Error(t, notifier.Notify(context.Background(), NewNotification(2, NotificationNewLead, "s", nil)))
}

func TestFormatNotificationSortsDetails(t *testing.T) {
	text := FormatNotification(Notification{
		Type:            NotificationNewCustomer,
		IntegrationName: "Shop",
		Details:         map[string]interface{}{"b": 2, "a": 1},
	})
	assert.Equal(t, "New customer from Shop\na: 1\nb: 2", text)
}
