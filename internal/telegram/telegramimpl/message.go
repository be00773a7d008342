package telegramimpl

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/telegram"
)

// SendMessage sends a text message to a specific chat
func (tg *TelegramImpl) SendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	sentMsg, err := tg.TgBot.Send(msg)
	if err != nil {
		tg.Logger.Error("Error sending message", "chatID", chatID, "error", err)
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sentMsg.MessageID, nil
}

// SendMessageWithKeyboard sends a text message with an inline keyboard attached
func (tg *TelegramImpl) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard

	sentMsg, err := tg.TgBot.Send(msg)
	if err != nil {
		tg.Logger.Error("Error sending message with keyboard", "chatID", chatID, "error", err)
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sentMsg.MessageID, nil
}

// EditMessageText replaces the text of a previously sent message
func (tg *TelegramImpl) EditMessageText(chatID int64, messageID int, newText string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, newText)
	if _, err := tg.TgBot.Send(edit); err != nil {
		tg.Logger.Error("Error editing message", "chatID", chatID, "messageID", messageID, "error", err)
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// SendDocument sends an in-memory file with a caption
func (tg *TelegramImpl) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	})
	doc.Caption = caption

	if _, err := tg.TgBot.Send(doc); err != nil {
		tg.Logger.Error("Error sending document", "chatID", chatID, "filename", filename, "error", err)
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query. Uses Request instead of
// Send to avoid a JSON unmarshal error on the empty response.
func (tg *TelegramImpl) AnswerCallback(callbackID string) {
	if _, err := tg.TgBot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		tg.Logger.Error("Error answering callback", "error", err)
	}
}

// NotifyAdmins fans a digest out to every configured administrator.
// Digests past the message size threshold are delivered as message.txt
// with the first two lines as the caption.
func (tg *TelegramImpl) NotifyAdmins(text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	for _, adminID := range tg.Config.Telegram.AdminIDs {
		if telegram.NeedsAttachment(text) {
			caption := telegram.AttachmentCaption(text)
			if err := tg.SendDocument(adminID, "message.txt", []byte(text), caption); err != nil {
				tg.Logger.Error("Failed to deliver digest attachment", "adminID", adminID, "error", err)
			}
			continue
		}

		var err error
		if keyboard != nil {
			_, err = tg.SendMessageWithKeyboard(adminID, text, *keyboard)
		} else {
			_, err = tg.SendMessage(adminID, text)
		}
		if err != nil {
			tg.Logger.Error("Failed to deliver digest", "adminID", adminID, "error", err)
		}
	}
}
