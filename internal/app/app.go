package app

import (
	"context"

	"go.uber.org/zap"

	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/events"
	"internbot/internal/i18n"
	"internbot/internal/observability"
)

var tracer = observability.Tracer("app")

// Transactor runs fn in one transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers best-effort messages to other actors.
type Notifier interface {
	Notify(ctx context.Context, msg chat.Message)
}

type Translator interface {
	Text(lang, key string, args ...string) string
}

// languageOf returns the stored language of an actor, or the default one
// when the actor cannot be read.
func languageOf(ctx context.Context, actors actor.Repository, actorID int64) string {
	a, err := actors.Get(ctx, actorID)
	if err != nil || a.Language == "" {
		return i18n.DefaultLanguage
	}
	return a.Language
}

func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, subject string, event any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, subject, event); err != nil {
		logger.Warn("domain event not published", zap.String("subject", subject), zap.Error(err))
	}
}

func notFoundAs(err error, code common.Code, message string) error {
	if common.Is(err, common.CodeNotFound) {
		return common.NewError(code, message, err)
	}
	return err
}
