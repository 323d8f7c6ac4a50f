package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-jobcard-manager/internal/observe"
)

const jobURL = "https://www.linkedin.com/jobs/view/%s/"

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    sender
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Bot{
		api:    api,
		chatID: chatID,
	}, nil
}

func (b *Bot) escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

// NotifyDismissal reports a manual dismissal with a link back to the job
// and the command to undo it.
func (b *Bot) NotifyDismissal(ctx context.Context, d observe.Dismissal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title := d.Title
	if title == "" {
		title = "Job " + d.ID
	}
	msgText := fmt.Sprintf("🙅 *%s*\n", b.escapeMarkdown(title))
	if d.Company != "" {
		msgText += fmt.Sprintf("🏢 %s\n", b.escapeMarkdown(d.Company))
	}
	msgText += fmt.Sprintf("🕒 %s\n", b.escapeMarkdown(d.At.Format("2006-01-02 15:04:05")))
	msgText += fmt.Sprintf("↩️ Undo: `jobctl undoLast %s`\n", d.ID)

	link := fmt.Sprintf(jobURL, d.ID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", link),
		),
	)

	msg := tgbotapi.NewMessage(b.chatID, msgText)
	msg.ParseMode = "MarkdownV2"
	msg.ReplyMarkup = keyboard

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendError(err error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := b.api.Send(msg)
	return sendErr
}

func (b *Bot) SendStatus(message string) error {
	msg := tgbotapi.NewMessage(b.chatID, "ℹ️ "+message)
	_, err := b.api.Send(msg)
	return err
}
