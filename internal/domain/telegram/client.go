package telegram

// Client defines an interface for sending messages via a Telegram bot.
// ThreadID selects a forum topic; nil posts to the main chat.
type Client interface {
	SendMessage(chatID int64, threadID *int, text string) (messageID int, err error)
	DeleteMessage(chatID int64, messageID int) error
}
