package bot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/export"
)

const maxMessageRunes = 4096

var deleteCommand = regexp.MustCompile(`^/delete_(job|application)_(.*)$`)

func (r *Router) handleCommand(ctx context.Context, req *request) error {
	switch req.ev.Command {
	case "/start":
		return r.onStart(ctx, req)
	case "/cancel":
		return r.cancelFlow(ctx, req)
	}

	if m := deleteCommand.FindStringSubmatch(req.ev.Command); m != nil {
		if !r.requireEmployer(ctx, req) {
			return nil
		}
		return r.onDelete(ctx, req, m[1], m[2])
	}

	switch req.ev.Command {
	case "/help_admin", "/my_jobs", "/list_students", "/export_applications":
		if !r.requireEmployer(ctx, req) {
			return nil
		}
	default:
		r.reply(ctx, req, "unknown_input")
		return nil
	}

	switch req.ev.Command {
	case "/help_admin":
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "help_admin_text"), ParseMode: "Markdown"})
		return nil
	case "/my_jobs":
		return r.listOwnPostings(ctx, req)
	case "/list_students":
		return r.listStudents(ctx, req)
	default:
		return r.exportApplications(ctx, req)
	}
}

// onStart resets any flow. New actors pick a language first.
func (r *Router) onStart(ctx context.Context, req *request) error {
	if req.sess.InFlow() {
		r.machine.Cancel(req.sess)
	}
	req.sess.Pending = ""

	if req.actor == nil {
		r.reply(ctx, req, "start")
		r.showLanguagePicker(ctx, req, "set_lang:")
		return nil
	}
	registered, err := r.isRegistered(ctx, req)
	if err != nil {
		return err
	}
	if registered || r.isEmployer(req) {
		return r.showMainMenu(ctx, req)
	}
	return r.startStudentRegistration(ctx, req)
}

func (r *Router) listOwnPostings(ctx context.Context, req *request) error {
	postings, err := r.postings.ListByEmployer(ctx, req.ev.ActorID)
	if err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{common.CodeValidation: "no_employer_profile"})
	}
	if len(postings) == 0 {
		r.reply(ctx, req, "no_jobs")
		return nil
	}
	var b strings.Builder
	b.WriteString(r.text(req, "my_jobs"))
	b.WriteString("\n\n")
	for _, p := range postings {
		fmt.Fprintf(&b, "#%d %s (%s)\n", p.ID, p.Title, r.activeLabel(req, p.IsActive))
	}
	r.sendChunked(ctx, req, strings.TrimRight(b.String(), "\n"))
	return nil
}

func (r *Router) listStudents(ctx context.Context, req *request) error {
	students, err := r.profiles.ListStudents(ctx)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		r.reply(ctx, req, "no_students")
		return nil
	}
	var b strings.Builder
	b.WriteString(r.text(req, "students_list"))
	b.WriteString("\n\n")
	for i, s := range students {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.FullName)
		fmt.Fprintf(&b, "   📞 %s\n", s.Phone)
		fmt.Fprintf(&b, "   🎓 %s %s, %s\n", s.Course, r.text(req, "course_suffix"), s.Major)
		fmt.Fprintf(&b, "   📅 %s: %s\n\n", r.text(req, "registered_at"), s.CreatedAt.Format(dateLayout))
	}
	r.sendChunked(ctx, req, strings.TrimRight(b.String(), "\n"))
	return nil
}

func (r *Router) sendChunked(ctx context.Context, req *request, text string) {
	for _, part := range chunk(text, maxMessageRunes) {
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: part})
	}
}

func (r *Router) exportApplications(ctx context.Context, req *request) error {
	registered, err := r.hasEmployerProfile(ctx, req.ev.ActorID)
	if err != nil {
		return err
	}
	if !registered {
		r.reply(ctx, req, "no_employer_profile")
		return nil
	}
	var buf bytes.Buffer
	count, err := r.applications.Export(ctx, req.ev.ActorID, req.lang, &buf)
	if err != nil {
		r.logger.Warn("export failed", zap.Int64("actor_id", req.ev.ActorID), zap.Error(err))
		r.reply(ctx, req, "error_export")
		return nil
	}
	if count == 0 {
		r.reply(ctx, req, "no_applications")
		return nil
	}
	err = r.sender.SendDocument(ctx, chat.Document{
		ChatID:   req.ev.ChatID,
		Filename: export.Filename(r.now()),
		Caption:  r.text(req, "export_caption", "count", fmt.Sprint(count)),
		Content:  &buf,
	})
	if err != nil {
		r.logger.Warn("export not delivered", zap.Int64("actor_id", req.ev.ActorID), zap.Error(err))
		r.reply(ctx, req, "error_export")
	}
	return nil
}

// onDelete handles /delete_job_<id> and /delete_application_<id>. Any
// failure, including a malformed id, is reported as delete_failed.
func (r *Router) onDelete(ctx context.Context, req *request, kind, rawID string) error {
	targetID, ok := parseID(rawID)
	if !ok {
		r.reply(ctx, req, "delete_failed")
		return nil
	}
	var err error
	key := "posting_deleted"
	if kind == "job" {
		err = r.postings.Delete(ctx, req.ev.ActorID, targetID)
	} else {
		key = "application_deleted"
		err = r.applications.Delete(ctx, req.ev.ActorID, targetID)
	}
	if err != nil {
		r.logger.Warn("delete failed", zap.Int64("actor_id", req.ev.ActorID), zap.Error(err))
		r.reply(ctx, req, "delete_failed")
		return nil
	}
	r.reply(ctx, req, key, "id", id(targetID))
	return nil
}
