package telegram

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageRunes is the digest length at which NotifyAdmins switches
// from a plain message to a message.txt attachment.
const MaxMessageRunes = 3000

type Client interface {
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()

	SendMessage(chatID int64, text string) (int, error)
	SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessageText(chatID int64, messageID int, newText string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error

	// AnswerCallback acknowledges a button press so the client stops
	// showing the loading animation.
	AnswerCallback(callbackID string)

	// NotifyAdmins delivers a digest to every administrator. Long
	// digests go out as a plain-text attachment with a short caption.
	NotifyAdmins(text string, keyboard *tgbotapi.InlineKeyboardMarkup)
}

// NeedsAttachment reports whether a digest is too long for a plain message.
func NeedsAttachment(text string) bool {
	return utf8.RuneCountInString(text) >= MaxMessageRunes
}

// AttachmentCaption builds the two-line summary caption for a digest
// sent as an attachment.
func AttachmentCaption(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 2 {
		lines = lines[:2]
	}
	return strings.Join(lines, "\n") + "\n..."
}
