package bot

import (
	"context"

	"go.uber.org/zap"

	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/flow"
	"internbot/internal/session"
)

// startFlow begins a flow. A different active flow is cancelled first; the
// same flow only gets its current prompt repeated.
func (r *Router) startFlow(ctx context.Context, req *request, name string, pending session.Intent) error {
	if req.sess.Flow == name {
		if step, ok := r.machine.Current(req.sess); ok {
			r.prompt(ctx, req, step, false)
			return nil
		}
	}
	if req.sess.InFlow() {
		r.machine.Cancel(req.sess)
	}
	step, err := r.machine.Start(req.sess, name)
	if err != nil {
		return err
	}
	req.sess.Pending = pending
	r.prompt(ctx, req, step, false)
	return nil
}

func (r *Router) advanceFlow(ctx context.Context, req *request, in flow.Input) error {
	// The employer set is checked again here: a stored session may outlive
	// a change of ADMIN_IDS.
	if isEmployerFlow(req.sess.Flow) && !r.isEmployer(req) {
		r.logger.Warn("employer flow dropped for non-employer",
			zap.Int64("actor_id", req.ev.ActorID),
			zap.String("flow", req.sess.Flow),
		)
		r.machine.Cancel(req.sess)
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "admin_only"), RemoveKeyboard: true})
		return nil
	}
	prev, _ := r.machine.Current(req.sess)
	result, err := r.machine.Advance(ctx, req.sess, in)
	if err != nil {
		if result.Next != nil {
			r.prompt(ctx, req, *result.Next, false)
			return nil
		}
		return r.flowFailed(ctx, req, result.Flow, err)
	}

	if !result.Done {
		r.prompt(ctx, req, *result.Next, prev.AcceptsContact)
		return nil
	}

	switch result.Flow {
	case flow.StudentRegistration:
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "student_profile_created"), RemoveKeyboard: true})
		req.sess.Mode = session.ModeStudent
		return r.showMainMenu(ctx, req)
	case flow.EmployerRegistration:
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "employer_profile_created"), RemoveKeyboard: true})
		if result.Chained != "" && result.Next != nil {
			r.prompt(ctx, req, *result.Next, false)
			return nil
		}
		req.sess.Mode = session.ModeEmployer
		return r.showMainMenu(ctx, req)
	case flow.PostingCreation:
		r.reply(ctx, req, "job_created")
		req.sess.Mode = session.ModeEmployer
		return r.showMainMenu(ctx, req)
	}
	return nil
}

func isEmployerFlow(name string) bool {
	return name == flow.EmployerRegistration || name == flow.PostingCreation
}

// flowFailed reports a commit that did not happen. The flow is already
// cleared, so nothing partial survives.
func (r *Router) flowFailed(ctx context.Context, req *request, name string, err error) error {
	switch common.CodeOf(err) {
	case common.CodeForbidden:
		r.reply(ctx, req, "admin_only")
		return nil
	case common.CodeConflict:
		r.reply(ctx, req, "already_registered")
		return r.showMainMenu(ctx, req)
	case common.CodeValidation:
		if name == flow.PostingCreation {
			r.reply(ctx, req, "no_employer_profile")
			return nil
		}
	}
	return err
}

// prompt asks for a step. Phone steps offer the share-contact keyboard,
// which is removed once the contact step is behind.
func (r *Router) prompt(ctx context.Context, req *request, step flow.Step, removeKeyboard bool) {
	msg := chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, step.PromptKey)}
	if step.AcceptsContact {
		msg.RequestContact = r.text(req, "share_contact")
	} else {
		msg.RemoveKeyboard = removeKeyboard
	}
	r.send(ctx, msg)
}

func (r *Router) cancelFlow(ctx context.Context, req *request) error {
	r.machine.Cancel(req.sess)
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "cancelled"), RemoveKeyboard: true})
	return r.showMainMenu(ctx, req)
}

func (r *Router) startStudentRegistration(ctx context.Context, req *request) error {
	registered, err := r.hasStudentProfile(ctx, req.ev.ActorID)
	if err != nil {
		return err
	}
	if registered {
		r.reply(ctx, req, "already_registered")
		return r.showMainMenu(ctx, req)
	}
	return r.startFlow(ctx, req, flow.StudentRegistration, session.IntentNone)
}

// startPostingCreation chains through employer registration when the
// employer has no profile yet.
func (r *Router) startPostingCreation(ctx context.Context, req *request) error {
	registered, err := r.hasEmployerProfile(ctx, req.ev.ActorID)
	if err != nil {
		return err
	}
	if registered {
		return r.startFlow(ctx, req, flow.PostingCreation, session.IntentNone)
	}
	return r.startFlow(ctx, req, flow.EmployerRegistration, session.IntentCreatePosting)
}
