package telegram

import (
	"strconv"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage posts text to a chat, inside a forum topic when threadID is set.
func (tba *TelebotAdapter) SendMessage(chatID int64, threadID *int, text string) (int, error) {
	opts := &telebot.SendOptions{}
	if threadID != nil {
		opts.ThreadID = *threadID
	}
	msg, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text, opts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (tba *TelebotAdapter) DeleteMessage(chatID int64, messageID int) error {
	return tba.bot.Delete(telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID})
}
