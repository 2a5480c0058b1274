package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"shopdesk/models"
	"shopdesk/utils"
)

const DefaultTelegramAPIBase = "https://api.telegram.org"

// UserFinder resolves the tenant a notification is addressed to.
type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

// TelegramNotifier sends notifications through the Telegram Bot API to the
// chat configured on the tenant. Tenants without a chat id are skipped.
type TelegramNotifier struct {
	Users   UserFinder
	Token   string
	APIBase string
	Client  *fasthttp.Client
}

func NewTelegramNotifier(users UserFinder, token, apiBase string) *TelegramNotifier {
	if apiBase == "" {
		apiBase = DefaultTelegramAPIBase
	}
	return &TelegramNotifier{
		Users:   users,
		Token:   token,
		APIBase: strings.TrimRight(apiBase, "/"),
		Client: &fasthttp.Client{
			Name:         "shopdesk-notifier",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Notify(ctx context.Context, n Notification) error {
	user, err := t.Users.FindUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("find user %d: %w", n.UserID, err)
	}
	if user.TelegramChatID == nil || strings.TrimSpace(*user.TelegramChatID) == "" {
		return nil
	}

	body, err := json.Marshal(telegramMessage{
		ChatID: *user.TelegramChatID,
		Text:   FormatNotification(n),
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.Token))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	if err := t.Client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}

	var result telegramResponse
	_ = json.Unmarshal(resp.Body(), &result)
	if resp.StatusCode() != fasthttp.StatusOK || !result.OK {
		if result.Description == "" {
			result.Description = "unexpected response"
		}
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), result.Description)
	}
	return nil
}

// FormatNotification renders the plain text message for n.
func FormatNotification(n Notification) string {
	var b strings.Builder
	switch n.Type {
	case NotificationNewLead:
		fmt.Fprintf(&b, "New lead from %s\n", n.IntegrationName)
	case NotificationNewCustomer:
		fmt.Fprintf(&b, "New customer from %s\n", n.IntegrationName)
	default:
		fmt.Fprintf(&b, "%s from %s\n", n.Type, n.IntegrationName)
	}

	keys := make([]string, 0, len(n.Details))
	for k := range n.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, n.Details[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogNotifier records notifications in the log. It is used when no
// Telegram bot token is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Type == "" {
		return errors.New("notification type is required")
	}
	data := map[string]interface{}{
		"notification_id":  n.ID.String(),
		"user_id":          n.UserID,
		"integration_name": n.IntegrationName,
	}
	for k, v := range n.Details {
		data[k] = v
	}
	utils.LogEvent("notification_"+n.Type, data)
	return nil
}
