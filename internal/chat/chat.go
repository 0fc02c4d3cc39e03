package chat

import (
	"context"
	"errors"
	"io"
	"net"
)

type EventKind string

const (
	EventCommand EventKind = "command"
	EventTrigger EventKind = "trigger"
	EventText    EventKind = "text"
	EventContact EventKind = "contact"
)

// Event is one inbound actor action, independent of the transport.
type Event struct {
	Kind    EventKind
	ActorID int64
	ChatID  int64
	// Command is the normalized command name including the leading slash.
	Command string
	Args    string
	// Payload is the opaque trigger string of a button press.
	Payload string
	Text    string
	Phone   string
}

type Button struct {
	Text    string
	Payload string
}

// Message is an outbound message. Buttons are rendered as inline rows.
type Message struct {
	ChatID         int64
	Text           string
	Buttons        [][]Button
	RequestContact string
	RemoveKeyboard bool
	ParseMode      string
}

type Document struct {
	ChatID   int64
	Filename string
	Caption  string
	Content  io.Reader
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	SendDocument(ctx context.Context, doc Document) error
}

// TransientError marks failures worth a single retry.
type TransientError interface {
	Temporary() bool
}

// IsTransient reports rate limiting, server errors and network timeouts.
func IsTransient(err error) bool {
	var t TransientError
	if errors.As(err, &t) && t.Temporary() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
