package telegram

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"internbot/internal/chat"
)

// EventHandler consumes transport-neutral events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev chat.Event) error
}

type callbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Adapter turns Bot API updates into chat events. Only private chats are
// served.
type Adapter struct {
	answerer callbackAnswerer
	handler  EventHandler
	logger   *zap.Logger
}

func NewAdapter(answerer callbackAnswerer, handler EventHandler, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{answerer: answerer, handler: handler, logger: logger}
}

func (a *Adapter) HandleUpdate(ctx context.Context, update Update) error {
	ev, ok := a.toEvent(ctx, update)
	if !ok {
		return nil
	}
	return a.handler.HandleEvent(ctx, ev)
}

func (a *Adapter) toEvent(ctx context.Context, update Update) (chat.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if a.answerer != nil && cq.ID != "" {
			if err := a.answerer.AnswerCallbackQuery(ctx, cq.ID); err != nil {
				a.logger.Warn("answer callback failed", zap.Int64("actor_id", cq.From.ID), zap.Error(err))
			}
		}
		chatID := cq.From.ID
		if cq.Message != nil {
			if !isPrivate(cq.Message.Chat) {
				return chat.Event{}, false
			}
			chatID = cq.Message.Chat.ID
		}
		if cq.From.ID == 0 || cq.Data == "" {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.EventTrigger, ActorID: cq.From.ID, ChatID: chatID, Payload: cq.Data}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat.ID <= 0 || !isPrivate(msg.Chat) {
		return chat.Event{}, false
	}
	actorID := msg.From.ID
	if actorID == 0 {
		actorID = msg.Chat.ID
	}
	ev := chat.Event{ActorID: actorID, ChatID: msg.Chat.ID}

	if msg.Contact != nil && strings.TrimSpace(msg.Contact.PhoneNumber) != "" {
		ev.Kind = chat.EventContact
		ev.Phone = strings.TrimSpace(msg.Contact.PhoneNumber)
		return ev, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return chat.Event{}, false
	}
	if strings.HasPrefix(text, "/") {
		ev.Kind = chat.EventCommand
		ev.Command, ev.Args = parseCommand(text)
		ev.Text = text
		return ev, true
	}
	ev.Kind = chat.EventText
	ev.Text = text
	return ev, true
}

func isPrivate(c Chat) bool {
	return c.Type == "" || c.Type == "private"
}

// parseCommand strips a @botname suffix and splits off the arguments.
func parseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	command := fields[0]
	if idx := strings.Index(command, "@"); idx != -1 {
		command = command[:idx]
	}
	return command, strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
}

// actorKey picks the identity updates are serialized on.
func actorKey(update Update) int64 {
	switch {
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From.ID != 0:
		return update.Message.From.ID
	case update.Message != nil:
		return update.Message.Chat.ID
	}
	return update.UpdateID
}
