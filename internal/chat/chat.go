// Package chat holds the transport-neutral shape of outbound messages.
package chat

import "context"

// Button is an inline keyboard button carrying callback data
type Button struct {
	Text string
	Data string
}

// Message is an outbound chat message. Text is MarkdownV2.
type Message struct {
	Text        string
	PhotoFileID string
	PhotoPNG    []byte
	Buttons     [][]Button
}

// Notifier delivers messages outside the conversation that triggered them
type Notifier interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// Row is a keyboard row
func Row(buttons ...Button) []Button {
	return buttons
}

// Btn builds a button
func Btn(text, data string) Button {
	return Button{Text: text, Data: data}
}
