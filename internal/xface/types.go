package xface

import (
	"context"
	"time"
)

// TextContent is the textual part of a post or message.
type TextContent struct {
	Content string `json:"content"`
}

// ImageContent is an undecoded image payload and the name it travels under.
type ImageContent struct {
	Raw      []byte `json:"raw"`
	Filename string `json:"filename"`
}

// PostData is the platform-agnostic post exchanged with the host.
// A nil field means that content kind is absent.
type PostData struct {
	Text  *TextContent  `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
}

// Text returns a PostData holding only text.
func Text(content string) PostData {
	return PostData{Text: &TextContent{Content: content}}
}

// Attachment is a binary attachment on a platform message.
type Attachment interface {
	Filename() string
	Read(ctx context.Context) ([]byte, error)
}

// Reaction counts how many times an emoji was used on a message.
type Reaction struct {
	Emoji string
	Count int
}

// Message is a message as delivered by the platform.
type Message struct {
	ID          uint64
	Content     *string
	Attachments []Attachment
	Reactions   []Reaction
	CreatedAt   time.Time
}

// File is an attachment on an outgoing message.
type File struct {
	Name string
	Data []byte
}

// Draft is an outgoing message ready to be sent to a channel.
type Draft struct {
	Content string
	Files   []File
}

// Page selects a slice of channel history. Before is an exclusive message id
// cursor; zero means the newest message.
type Page struct {
	Before uint64
	Limit  int
}

// Channel is a resolved destination on a messaging platform.
type Channel interface {
	ID() string
	Send(ctx context.Context, draft Draft) (*Message, error)
	Message(ctx context.Context, id uint64) (*Message, error)
	// History returns up to Page.Limit messages older than Page.Before,
	// newest first.
	History(ctx context.Context, page Page) ([]*Message, error)
	// CursorAt returns a message id cursor positioned at t, usable as
	// Page.Before.
	CursorAt(t time.Time) uint64
}

// Client is a live connection to a messaging platform.
type Client interface {
	Name() string
	Channel(ctx context.Context, id string) (Channel, error)
	Close() error
}
