package adapter

import "context"

// SendMessageParams describes an outbound Telegram message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	Markdown  bool
	ReplyToID int
}

// TelegramBotAdapter is the outbound port used by workers and use cases to
// talk back to users without depending on the bot library.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, p SendMessageParams) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
