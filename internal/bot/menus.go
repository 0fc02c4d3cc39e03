package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"internbot/internal/app"
	"internbot/internal/chat"
	"internbot/internal/domain/application"
	"internbot/internal/domain/posting"
	"internbot/internal/session"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
)

func button(text, payload string) []chat.Button {
	return []chat.Button{{Text: text, Payload: payload}}
}

func (r *Router) backButton(req *request, payload string) []chat.Button {
	return button(r.text(req, "back"), payload)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// mode picks the panel shown to the actor. Only employers can be in
// employer mode, and they are unless they switched to student mode.
func (r *Router) mode(req *request) session.Mode {
	if !r.isEmployer(req) {
		return session.ModeStudent
	}
	if req.sess.Mode == session.ModeStudent {
		return session.ModeStudent
	}
	return session.ModeEmployer
}

func (r *Router) showMainMenu(ctx context.Context, req *request) error {
	var (
		title string
		rows  [][]chat.Button
	)
	if r.mode(req) == session.ModeStudent {
		title = r.text(req, "start_student")
		rows = [][]chat.Button{
			button(r.text(req, "browse_jobs"), "browse_jobs"),
			button(r.text(req, "my_applications"), "my_applications"),
			button(r.text(req, "profile"), "student_profile"),
		}
		if r.isEmployer(req) {
			rows = append(rows, button(r.text(req, "switch_to_employer"), "switch_to_employer"))
		}
	} else {
		title = r.text(req, "start_employer")
		rows = [][]chat.Button{
			button(r.text(req, "create_job"), "create_job"),
			button(r.text(req, "my_jobs"), "my_jobs"),
			button(r.text(req, "view_applications"), "view_applications"),
		}
		registered, err := r.hasStudentProfile(ctx, req.ev.ActorID)
		if err != nil {
			return err
		}
		if registered {
			rows = append(rows, button(r.text(req, "switch_to_student"), "switch_to_student"))
		} else {
			rows = append(rows, button(r.text(req, "browse_jobs"), "browse_jobs_as_employer"))
		}
	}
	rows = append(rows, button(r.text(req, "change_language"), "change_language"))
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: title, Buttons: rows})
	return nil
}

func (r *Router) showLanguagePicker(ctx context.Context, req *request, prefix string) {
	var rows [][]chat.Button
	for _, l := range r.texts.Languages() {
		rows = append(rows, button(l.Name, prefix+l.Code))
	}
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "choose_language"), Buttons: rows})
}

func (r *Router) postingText(req *request, l *posting.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\n%s\n\n", l.Title, l.CompanyName, l.Description)
	if l.Salary != "" {
		fmt.Fprintf(&b, "💵 %s: %s\n", r.text(req, "salary"), l.Salary)
	}
	if l.Requirements != "" {
		fmt.Fprintf(&b, "📋 %s: %s\n", r.text(req, "requirements"), l.Requirements)
	}
	fmt.Fprintf(&b, "📞 %s: %s", r.text(req, "contact"), l.ContactPhone)
	return b.String()
}

func (r *Router) activeLabel(req *request, active bool) string {
	if active {
		return r.text(req, "posting_active")
	}
	return r.text(req, "posting_inactive")
}

func (r *Router) statusLabel(req *request, status application.Status) string {
	return app.StatusLabel(r.texts, req.lang, status)
}

func (r *Router) applicationText(req *request, d *application.Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📄 %s #%d\n\n", r.text(req, "application"), d.ID)
	fmt.Fprintf(&b, "👤 %s: %s\n", r.text(req, "name"), d.StudentName)
	fmt.Fprintf(&b, "🎓 %s: %s\n", r.text(req, "course"), d.StudentCourse)
	fmt.Fprintf(&b, "📚 %s: %s\n", r.text(req, "major"), d.StudentMajor)
	fmt.Fprintf(&b, "📞 %s: %s\n", r.text(req, "phone"), d.StudentPhone)
	fmt.Fprintf(&b, "💼 %s: %s\n", r.text(req, "job"), d.PostingTitle)
	fmt.Fprintf(&b, "📅 %s: %s\n", r.text(req, "applied_at"), d.AppliedAt.Format(dateTimeLayout))
	if d.ReviewedAt != nil {
		fmt.Fprintf(&b, "🕒 %s: %s\n", r.text(req, "reviewed_at"), d.ReviewedAt.Format(dateTimeLayout))
	}
	fmt.Fprintf(&b, "📊 %s: %s\n", r.text(req, "status"), r.statusLabel(req, d.Status))
	fmt.Fprintf(&b, "📝 %s: %s", r.text(req, "about_student"), d.StudentAbout)
	return b.String()
}

// chunk splits text into pieces of at most size runes.
func chunk(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := size
		if len(runes) < n {
			n = len(runes)
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}
