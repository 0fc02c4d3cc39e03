package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"internbot/internal/app"
	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/flow"
	"internbot/internal/i18n"
	"internbot/internal/metrics"
	"internbot/internal/observability"
	"internbot/internal/ratelimit"
	"internbot/internal/session"
)

var tracer = observability.Tracer("bot")

type Deps struct {
	Sender       chat.Sender
	Sessions     session.Store
	Profiles     *app.ProfileService
	Postings     *app.PostingService
	Applications *app.ApplicationService
	Texts        *i18n.Catalog
	Limiter      ratelimit.Limiter
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

// Router turns chat events into state machine steps and menu actions.
// Every failure stays local to the actor that caused it.
type Router struct {
	sender       chat.Sender
	sessions     session.Store
	profiles     *app.ProfileService
	postings     *app.PostingService
	applications *app.ApplicationService
	texts        *i18n.Catalog
	limiter      ratelimit.Limiter
	metrics      *metrics.Collector
	logger       *zap.Logger
	machine      *flow.Machine
	triggers     map[string]triggerHandler
	now          func() time.Time
}

// request is the state of one event while it is being handled.
type request struct {
	ev    chat.Event
	sess  *session.Session
	actor *actor.Actor
	lang  string
}

func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NoopLimiter{}
	}
	r := &Router{
		sender:       deps.Sender,
		sessions:     deps.Sessions,
		profiles:     deps.Profiles,
		postings:     deps.Postings,
		applications: deps.Applications,
		texts:        deps.Texts,
		limiter:      deps.Limiter,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		now:          time.Now,
	}
	r.machine = flow.NewMachine(map[string]flow.Committer{
		flow.StudentRegistration: flow.CommitFunc(func(ctx context.Context, actorID int64, values map[string]string) error {
			_, err := r.profiles.CreateStudent(ctx, actorID, values)
			return err
		}),
		flow.EmployerRegistration: r.employerOnly(func(ctx context.Context, actorID int64, values map[string]string) error {
			_, err := r.profiles.CreateEmployer(ctx, actorID, values)
			return err
		}),
		flow.PostingCreation: r.employerOnly(func(ctx context.Context, actorID int64, values map[string]string) error {
			_, err := r.postings.Create(ctx, actorID, values)
			return err
		}),
	}, nil)
	r.triggers = r.triggerTable()
	return r
}

// employerOnly refuses the write for actors outside the employer set.
func (r *Router) employerOnly(fn flow.CommitFunc) flow.CommitFunc {
	return func(ctx context.Context, actorID int64, values map[string]string) error {
		if !r.profiles.IsEmployer(actorID) {
			return common.NewError(common.CodeForbidden, "employer only", nil)
		}
		return fn(ctx, actorID, values)
	}
}

func (r *Router) HandleEvent(ctx context.Context, ev chat.Event) (err error) {
	r.metrics.IncEvent(string(ev.Kind))
	if !r.limiter.Allow(strconv.FormatInt(ev.ActorID, 10)) {
		r.metrics.IncThrottled()
		r.logger.Debug("event throttled", zap.Int64("actor_id", ev.ActorID))
		return nil
	}

	ctx, span := tracer.Start(ctx, "bot.HandleEvent")
	defer span.End()
	span.SetAttributes(
		observability.Int64("actor_id", ev.ActorID),
		observability.String("event", string(ev.Kind)),
	)

	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncHandlerErrors()
			span.SetStatus(codes.Error, "panic")
			r.logger.Error("event handler panicked",
				zap.Int64("actor_id", ev.ActorID),
				zap.String("panic", fmt.Sprint(rec)),
				zap.Stack("stack"),
			)
			err = nil
		}
	}()

	req := &request{ev: ev, lang: i18n.DefaultLanguage}
	req.sess, err = session.Load(ctx, r.sessions, ev.ActorID)
	if err != nil {
		r.logger.Warn("session unavailable, starting fresh", zap.Int64("actor_id", ev.ActorID), zap.Error(err))
		req.sess = &session.Session{ActorID: ev.ActorID}
	}
	if a, getErr := r.profiles.Actor(ctx, ev.ActorID); getErr == nil {
		req.actor = a
		if a.Language != "" {
			req.lang = a.Language
		}
	} else if !common.Is(getErr, common.CodeNotFound) {
		r.logger.Warn("actor lookup failed", zap.Int64("actor_id", ev.ActorID), zap.Error(getErr))
	}

	if handleErr := r.dispatch(ctx, req); handleErr != nil {
		r.metrics.IncHandlerErrors()
		span.RecordError(handleErr)
		span.SetStatus(codes.Error, string(common.CodeOf(handleErr)))
		r.logger.Error("event handler failed",
			zap.Int64("actor_id", ev.ActorID),
			zap.String("event", string(ev.Kind)),
			zap.Error(handleErr),
			zap.ByteString("stack", common.StackOf(handleErr)),
		)
		r.reply(ctx, req, "generic_error")
	}

	req.sess.UpdatedAt = r.now()
	if saveErr := r.sessions.Save(ctx, req.sess); saveErr != nil {
		r.logger.Warn("session not saved", zap.Int64("actor_id", ev.ActorID), zap.Error(saveErr))
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, req *request) error {
	switch req.ev.Kind {
	case chat.EventCommand:
		return r.handleCommand(ctx, req)
	case chat.EventTrigger:
		return r.handleTrigger(ctx, req)
	case chat.EventText, chat.EventContact:
		if req.sess.InFlow() {
			return r.advanceFlow(ctx, req, flow.Input{Text: req.ev.Text, Phone: req.ev.Phone})
		}
		r.reply(ctx, req, "unknown_input")
		return nil
	}
	return nil
}

func (r *Router) send(ctx context.Context, msg chat.Message) {
	if err := r.sender.Send(ctx, msg); err != nil {
		r.logger.Warn("reply not delivered", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (r *Router) reply(ctx context.Context, req *request, key string, args ...string) {
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.texts.Text(req.lang, key, args...)})
}

func (r *Router) text(req *request, key string, args ...string) string {
	return r.texts.Text(req.lang, key, args...)
}

// fail answers an expected error with the key registered for its code.
// Anything without a key is returned to be logged as a handler failure.
func (r *Router) fail(ctx context.Context, req *request, err error, keys map[common.Code]string) error {
	code := common.CodeOf(err)
	if key, ok := keys[code]; ok {
		r.reply(ctx, req, key)
		return nil
	}
	switch code {
	case common.CodeForbidden:
		r.reply(ctx, req, "forbidden")
		return nil
	case common.CodeUnsupported:
		r.reply(ctx, req, "profile_edit_unsupported")
		return nil
	}
	return err
}

func (r *Router) isEmployer(req *request) bool {
	return r.profiles.IsEmployer(req.ev.ActorID)
}

// requireEmployer answers admin_only for actors outside the employer set.
func (r *Router) requireEmployer(ctx context.Context, req *request) bool {
	if r.isEmployer(req) {
		return true
	}
	r.reply(ctx, req, "admin_only")
	return false
}

// hasStudentProfile reports a missing profile as false. Store failures
// are returned so no flow starts on top of an outage.
func (r *Router) hasStudentProfile(ctx context.Context, actorID int64) (bool, error) {
	_, err := r.profiles.StudentProfile(ctx, actorID)
	return present(err)
}

func (r *Router) hasEmployerProfile(ctx context.Context, actorID int64) (bool, error) {
	_, err := r.profiles.EmployerProfile(ctx, actorID)
	return present(err)
}

func present(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case common.Is(err, common.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}
