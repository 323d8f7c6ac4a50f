package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobcard-manager/internal/observe"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestNotifyDismissal(t *testing.T) {
	api := &fakeSender{}
	b := &Bot{api: api, chatID: 42}

	err := b.NotifyDismissal(context.Background(), observe.Dismissal{
		ID:      "4329358250",
		Title:   "Sr. Go Engineer (Remote)",
		Company: "Acme",
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Contains(t, msg.Text, "Sr\\. Go Engineer \\(Remote\\)")
	assert.Contains(t, msg.Text, "jobctl undoLast 4329358250")

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/4329358250/", *markup.InlineKeyboard[0][0].URL)
}

func TestNotifyDismissalHonoursContext(t *testing.T) {
	api := &fakeSender{}
	b := &Bot{api: api, chatID: 42}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.NotifyDismissal(ctx, observe.Dismissal{ID: "1"}), context.Canceled)
	assert.Empty(t, api.sent)
}

func TestEscapeMarkdown(t *testing.T) {
	b := &Bot{}
	assert.Equal(t, "a\\_b\\*c\\!", b.escapeMarkdown("a_b*c!"))
}
