package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/domain/application"
	"internbot/internal/session"
)

type triggerHandler struct {
	employerOnly bool
	handle       func(ctx context.Context, req *request, arg string) error
}

func (r *Router) triggerTable() map[string]triggerHandler {
	open := func(fn func(ctx context.Context, req *request, arg string) error) triggerHandler {
		return triggerHandler{handle: fn}
	}
	employer := func(fn func(ctx context.Context, req *request, arg string) error) triggerHandler {
		return triggerHandler{employerOnly: true, handle: fn}
	}
	return map[string]triggerHandler{
		"set_lang":                   open(r.onSetLanguage),
		"change_lang":                open(r.onSetLanguage),
		"change_language":            open(r.onChangeLanguage),
		"student_register":           open(r.onStudentRegister),
		"start_student_registration": open(r.onStudentRegister),
		"browse_jobs":                open(r.onBrowseJobs),
		"view_job":                   open(r.onViewJob),
		"apply_job":                  open(r.onApplyJob),
		"my_applications":            open(r.onMyApplications),
		"student_profile":            open(r.onStudentProfile),
		"edit_student_profile":       open(r.onEditStudentProfile),
		"back_to_main":               open(r.onBackToMain),
		"switch_to_student":          open(r.onSwitchToStudent),
		"switch_to_employer":         employer(r.onSwitchToEmployer),
		"browse_jobs_as_employer":    employer(r.onBrowseJobsAsEmployer),
		"view_job_info":              employer(r.onViewJobInfo),
		"create_job":                 employer(r.onCreateJob),
		"my_jobs":                    employer(r.onMyJobs),
		"view_my_job":                employer(r.onViewMyJob),
		"view_job_applications":      employer(r.onViewJobApplications),
		"toggle_job":                 employer(r.onToggleJob),
		"view_applications":          employer(r.onViewApplications),
		"review_application":         employer(r.onReviewApplication),
		"accept_application":         employer(r.statusAction(application.StatusAccepted)),
		"reject_application":         employer(r.statusAction(application.StatusRejected)),
		"under_review_application":   employer(r.statusAction(application.StatusUnderReview)),
	}
}

func (r *Router) handleTrigger(ctx context.Context, req *request) error {
	name, arg, _ := strings.Cut(req.ev.Payload, ":")
	h, ok := r.triggers[name]
	if !ok {
		r.logger.Debug("unknown trigger", zap.Int64("actor_id", req.ev.ActorID), zap.String("payload", req.ev.Payload))
		r.reply(ctx, req, "unknown_input")
		return nil
	}
	if h.employerOnly && !r.requireEmployer(ctx, req) {
		return nil
	}
	return h.handle(ctx, req, arg)
}

func parseID(arg string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	return v, err == nil && v > 0
}

// withID parses the trigger argument as an id before calling fn.
func (r *Router) withID(ctx context.Context, req *request, arg string, fn func(id int64) error) error {
	v, ok := parseID(arg)
	if !ok {
		r.reply(ctx, req, "invalid_command")
		return nil
	}
	return fn(v)
}

func (r *Router) onSetLanguage(ctx context.Context, req *request, code string) error {
	if !r.texts.Supported(code) {
		r.reply(ctx, req, "invalid_command")
		return nil
	}
	a, _, err := r.profiles.SelectLanguage(ctx, req.ev.ActorID, code)
	if err != nil {
		return err
	}
	req.actor = a
	req.lang = a.Language
	r.reply(ctx, req, "language_changed")

	registered, err := r.isRegistered(ctx, req)
	if err != nil {
		return err
	}
	if registered || r.isEmployer(req) {
		return r.showMainMenu(ctx, req)
	}
	if req.sess.Flow == "" {
		return r.startStudentRegistration(ctx, req)
	}
	if step, ok := r.machine.Current(req.sess); ok {
		r.prompt(ctx, req, step, false)
	}
	return nil
}

// isRegistered reports whether the actor has the profile of its role.
func (r *Router) isRegistered(ctx context.Context, req *request) (bool, error) {
	if r.isEmployer(req) {
		return r.hasEmployerProfile(ctx, req.ev.ActorID)
	}
	return r.hasStudentProfile(ctx, req.ev.ActorID)
}

func (r *Router) onChangeLanguage(ctx context.Context, req *request, _ string) error {
	r.showLanguagePicker(ctx, req, "change_lang:")
	return nil
}

func (r *Router) onStudentRegister(ctx context.Context, req *request, _ string) error {
	return r.startStudentRegistration(ctx, req)
}

func (r *Router) onCreateJob(ctx context.Context, req *request, _ string) error {
	return r.startPostingCreation(ctx, req)
}

func (r *Router) onBackToMain(ctx context.Context, req *request, _ string) error {
	return r.showMainMenu(ctx, req)
}

func (r *Router) onSwitchToStudent(ctx context.Context, req *request, _ string) error {
	registered, err := r.hasStudentProfile(ctx, req.ev.ActorID)
	if err != nil {
		return err
	}
	if !registered {
		r.send(ctx, chat.Message{
			ChatID: req.ev.ChatID,
			Text:   r.text(req, "student_mode_requires_profile"),
			Buttons: [][]chat.Button{
				button(r.text(req, "fill_student_profile"), "start_student_registration"),
				r.backButton(req, "back_to_main"),
			},
		})
		return nil
	}
	req.sess.Mode = session.ModeStudent
	return r.showMainMenu(ctx, req)
}

func (r *Router) onSwitchToEmployer(ctx context.Context, req *request, _ string) error {
	req.sess.Mode = session.ModeEmployer
	return r.showMainMenu(ctx, req)
}

func (r *Router) onBrowseJobs(ctx context.Context, req *request, _ string) error {
	listings, err := r.postings.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		r.reply(ctx, req, "no_jobs")
		return nil
	}
	text := r.text(req, "available_jobs")
	if r.isEmployer(req) {
		text += "\n\n" + r.text(req, "employer_as_student_warning")
	}
	rows := make([][]chat.Button, 0, len(listings)+1)
	for _, l := range listings {
		rows = append(rows, button(l.Title+" - "+l.CompanyName, "view_job:"+id(l.ID)))
	}
	rows = append(rows, r.backButton(req, "back_to_main"))
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: text, Buttons: rows})
	return nil
}

func (r *Router) onBrowseJobsAsEmployer(ctx context.Context, req *request, _ string) error {
	listings, err := r.postings.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		r.reply(ctx, req, "no_jobs")
		return nil
	}
	rows := make([][]chat.Button, 0, len(listings)+1)
	for _, l := range listings {
		rows = append(rows, button(l.Title+" - "+l.CompanyName, "view_job_info:"+id(l.ID)))
	}
	rows = append(rows, r.backButton(req, "back_to_main"))
	r.send(ctx, chat.Message{
		ChatID:  req.ev.ChatID,
		Text:    r.text(req, "available_jobs") + "\n\n" + r.text(req, "browse_view_only_hint"),
		Buttons: rows,
	})
	return nil
}

func (r *Router) onViewJob(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(postingID int64) error {
		listing, _, err := r.postings.Details(ctx, postingID)
		if err != nil {
			return r.fail(ctx, req, err, map[common.Code]string{common.CodeNotFound: "posting_not_found"})
		}
		text := r.postingText(req, listing)
		if r.isEmployer(req) {
			text += "\n\n" + r.text(req, "employer_as_student_warning")
		}
		r.send(ctx, chat.Message{
			ChatID: req.ev.ChatID,
			Text:   text,
			Buttons: [][]chat.Button{
				button(r.text(req, "apply_job"), "apply_job:"+id(postingID)),
				r.backButton(req, "browse_jobs"),
			},
		})
		return nil
	})
}

func (r *Router) onViewJobInfo(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(postingID int64) error {
		listing, _, err := r.postings.Details(ctx, postingID)
		if err != nil {
			return r.fail(ctx, req, err, map[common.Code]string{common.CodeNotFound: "posting_not_found"})
		}
		r.send(ctx, chat.Message{
			ChatID: req.ev.ChatID,
			Text:   r.postingText(req, listing) + "\n\n" + r.text(req, "view_only_apply_hint"),
			Buttons: [][]chat.Button{
				button(r.text(req, "fill_student_profile"), "start_student_registration"),
				r.backButton(req, "browse_jobs_as_employer"),
			},
		})
		return nil
	})
}

func (r *Router) onApplyJob(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(postingID int64) error {
		_, err := r.applications.Apply(ctx, req.ev.ActorID, postingID)
		switch common.CodeOf(err) {
		case "":
		case common.CodeValidation:
			r.send(ctx, chat.Message{
				ChatID:  req.ev.ChatID,
				Text:    r.text(req, "complete_student_profile"),
				Buttons: [][]chat.Button{button(r.text(req, "fill_student_profile"), "start_student_registration")},
			})
			return nil
		default:
			if err := r.fail(ctx, req, err, map[common.Code]string{
				common.CodeUnavailable: "posting_unavailable",
				common.CodeConflict:    "already_applied",
			}); err != nil {
				return err
			}
			return r.showMainMenu(ctx, req)
		}
		r.reply(ctx, req, "application_submitted")
		return r.showMainMenu(ctx, req)
	})
}

func (r *Router) onMyApplications(ctx context.Context, req *request, _ string) error {
	details, err := r.applications.ListForStudent(ctx, req.ev.ActorID)
	if err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{common.CodeValidation: "complete_student_profile"})
	}
	back := [][]chat.Button{r.backButton(req, "back_to_main")}
	if len(details) == 0 {
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "no_applications"), Buttons: back})
		return nil
	}
	var b strings.Builder
	b.WriteString(r.text(req, "student_applications"))
	b.WriteString("\n\n")
	for _, d := range details {
		fmt.Fprintf(&b, "📄 %s\n🏢 %s\n📊 %s\n📅 %s\n\n", d.PostingTitle, d.CompanyName, r.statusLabel(req, d.Status), d.AppliedAt.Format(dateTimeLayout))
	}
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: strings.TrimRight(b.String(), "\n"), Buttons: back})
	return nil
}

func (r *Router) onStudentProfile(ctx context.Context, req *request, _ string) error {
	student, err := r.profiles.StudentProfile(ctx, req.ev.ActorID)
	if err != nil {
		if !common.Is(err, common.CodeNotFound) {
			return err
		}
		r.send(ctx, chat.Message{
			ChatID:  req.ev.ChatID,
			Text:    r.text(req, "complete_student_profile"),
			Buttons: [][]chat.Button{button(r.text(req, "fill_student_profile"), "start_student_registration")},
		})
		return nil
	}
	var b strings.Builder
	b.WriteString(r.text(req, "student_profile"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "👤 %s: %s\n", r.text(req, "name"), student.FullName)
	fmt.Fprintf(&b, "📞 %s: %s\n", r.text(req, "phone"), student.Phone)
	fmt.Fprintf(&b, "🎓 %s: %s\n", r.text(req, "course"), student.Course)
	fmt.Fprintf(&b, "📚 %s: %s\n", r.text(req, "major"), student.Major)
	if student.About != "" {
		fmt.Fprintf(&b, "📝 %s: %s\n", r.text(req, "about_student"), student.About)
	}
	r.send(ctx, chat.Message{
		ChatID: req.ev.ChatID,
		Text:   strings.TrimRight(b.String(), "\n"),
		Buttons: [][]chat.Button{
			button(r.text(req, "edit_profile"), "edit_student_profile"),
			r.backButton(req, "back_to_main"),
		},
	})
	return nil
}

func (r *Router) onEditStudentProfile(ctx context.Context, req *request, _ string) error {
	err := r.profiles.EditStudentProfile(ctx, req.ev.ActorID)
	if err == nil {
		return nil
	}
	if !common.Is(err, common.CodeUnsupported) {
		return err
	}
	r.send(ctx, chat.Message{
		ChatID:  req.ev.ChatID,
		Text:    r.text(req, "profile_edit_unsupported"),
		Buttons: [][]chat.Button{r.backButton(req, "student_profile")},
	})
	return nil
}

func (r *Router) onViewApplications(ctx context.Context, req *request, _ string) error {
	details, err := r.applications.ListForEmployer(ctx, req.ev.ActorID)
	if err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{common.CodeValidation: "no_employer_profile"})
	}
	back := r.backButton(req, "back_to_main")
	if len(details) == 0 {
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "no_applications"), Buttons: [][]chat.Button{back}})
		return nil
	}
	rows := make([][]chat.Button, 0, len(details)+1)
	for _, d := range details {
		label := fmt.Sprintf("%s - %s (%s)", d.StudentName, d.PostingTitle, r.statusLabel(req, d.Status))
		rows = append(rows, button(label, "review_application:"+id(d.ID)))
	}
	rows = append(rows, back)
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "your_applications"), Buttons: rows})
	return nil
}

func (r *Router) onReviewApplication(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(applicationID int64) error {
		d, err := r.applications.Review(ctx, req.ev.ActorID, applicationID)
		if err != nil {
			return r.fail(ctx, req, err, map[common.Code]string{common.CodeNotFound: "application_not_found"})
		}
		var rows [][]chat.Button
		if !application.IsFinal(d.Status) {
			rows = append(rows, []chat.Button{
				{Text: r.text(req, "accept_application"), Payload: "accept_application:" + id(d.ID)},
				{Text: r.text(req, "reject_application"), Payload: "reject_application:" + id(d.ID)},
			})
		}
		if d.Status == application.StatusPending {
			rows = append(rows, button(r.text(req, "mark_under_review"), "under_review_application:"+id(d.ID)))
		}
		rows = append(rows, r.backButton(req, "view_applications"))
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.applicationText(req, d), Buttons: rows})
		return nil
	})
}

// statusAction builds the handler of one review button. Notifications to
// the applicant and the confirmation echo are sent by the service.
func (r *Router) statusAction(status application.Status) func(ctx context.Context, req *request, arg string) error {
	return func(ctx context.Context, req *request, arg string) error {
		return r.withID(ctx, req, arg, func(applicationID int64) error {
			_, err := r.applications.SetStatus(ctx, req.ev.ActorID, applicationID, status)
			if err != nil {
				return r.fail(ctx, req, err, map[common.Code]string{
					common.CodeNotFound:   "application_not_found",
					common.CodeValidation: "status_final",
					common.CodeConflict:   "status_final",
				})
			}
			return r.onViewApplications(ctx, req, "")
		})
	}
}

func (r *Router) onMyJobs(ctx context.Context, req *request, _ string) error {
	postings, err := r.postings.ListByEmployer(ctx, req.ev.ActorID)
	if err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{common.CodeValidation: "no_employer_profile"})
	}
	back := r.backButton(req, "back_to_main")
	if len(postings) == 0 {
		r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "no_jobs"), Buttons: [][]chat.Button{back}})
		return nil
	}
	rows := make([][]chat.Button, 0, len(postings)+1)
	for _, p := range postings {
		rows = append(rows, button(fmt.Sprintf("%s (%s)", p.Title, r.activeLabel(req, p.IsActive)), "view_my_job:"+id(p.ID)))
	}
	rows = append(rows, back)
	r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "my_jobs"), Buttons: rows})
	return nil
}

func (r *Router) onViewMyJob(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(postingID int64) error {
		return r.showMyJob(ctx, req, postingID)
	})
}

func (r *Router) showMyJob(ctx context.Context, req *request, postingID int64) error {
	listing, count, err := r.postings.Owned(ctx, req.ev.ActorID, postingID)
	if err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{
			common.CodeNotFound:   "posting_not_found",
			common.CodeValidation: "no_employer_profile",
		})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", listing.Title)
	fmt.Fprintf(&b, "📅 %s: %s\n", r.text(req, "created_at"), listing.CreatedAt.Format(dateTimeLayout))
	fmt.Fprintf(&b, "📊 %s: %s\n\n", r.text(req, "status"), r.activeLabel(req, listing.IsActive))
	fmt.Fprintf(&b, "%s:\n%s\n\n", r.text(req, "description"), listing.Description)
	if listing.Salary != "" {
		fmt.Fprintf(&b, "%s: %s\n\n", r.text(req, "salary"), listing.Salary)
	}
	if listing.Requirements != "" {
		fmt.Fprintf(&b, "%s: %s\n\n", r.text(req, "requirements"), listing.Requirements)
	}
	fmt.Fprintf(&b, "📨 %s: %d", r.text(req, "applications_count"), count)

	toggleText, toggleAction := r.text(req, "activate_posting"), "activate"
	if listing.IsActive {
		toggleText, toggleAction = r.text(req, "deactivate_posting"), "deactivate"
	}
	r.send(ctx, chat.Message{
		ChatID: req.ev.ChatID,
		Text:   b.String(),
		Buttons: [][]chat.Button{
			button(r.text(req, "view_applications"), "view_job_applications:"+id(postingID)),
			button(toggleText, fmt.Sprintf("toggle_job:%d:%s", postingID, toggleAction)),
			r.backButton(req, "my_jobs"),
		},
	})
	return nil
}

func (r *Router) onViewJobApplications(ctx context.Context, req *request, arg string) error {
	return r.withID(ctx, req, arg, func(postingID int64) error {
		details, err := r.applications.ListForPosting(ctx, req.ev.ActorID, postingID)
		if err != nil {
			return r.fail(ctx, req, err, map[common.Code]string{
				common.CodeNotFound:   "posting_not_found",
				common.CodeValidation: "no_employer_profile",
			})
		}
		back := r.backButton(req, "view_my_job:"+id(postingID))
		if len(details) == 0 {
			r.send(ctx, chat.Message{ChatID: req.ev.ChatID, Text: r.text(req, "no_applications"), Buttons: [][]chat.Button{back}})
			return nil
		}
		rows := make([][]chat.Button, 0, len(details)+1)
		for _, d := range details {
			rows = append(rows, button(d.StudentName+" - "+r.statusLabel(req, d.Status), "review_application:"+id(d.ID)))
		}
		rows = append(rows, back)
		r.send(ctx, chat.Message{
			ChatID:  req.ev.ChatID,
			Text:    fmt.Sprintf("%s (%d)", r.text(req, "your_applications"), len(details)),
			Buttons: rows,
		})
		return nil
	})
}

func (r *Router) onToggleJob(ctx context.Context, req *request, arg string) error {
	rawID, action, _ := strings.Cut(arg, ":")
	postingID, ok := parseID(rawID)
	if !ok || (action != "activate" && action != "deactivate") {
		r.reply(ctx, req, "invalid_command")
		return nil
	}
	active := action == "activate"
	if err := r.postings.SetActive(ctx, req.ev.ActorID, postingID, active); err != nil {
		return r.fail(ctx, req, err, map[common.Code]string{
			common.CodeNotFound:   "posting_not_found",
			common.CodeValidation: "no_employer_profile",
		})
	}
	if active {
		r.reply(ctx, req, "posting_activated")
	} else {
		r.reply(ctx, req, "posting_deactivated")
	}
	return r.showMyJob(ctx, req, postingID)
}
