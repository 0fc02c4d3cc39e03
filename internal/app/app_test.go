package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/domain/application"
	"internbot/internal/domain/posting"
	"internbot/internal/events"
	"internbot/internal/i18n"
)

const (
	employerActor = int64(900)
	studentActor  = int64(100)
)

type harness struct {
	store        *memoryStore
	notifier     *recordingNotifier
	publisher    *recordingPublisher
	profiles     *ProfileService
	postings     *PostingService
	applications *ApplicationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog, err := i18n.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store := newMemoryStore()
	tx := &serialTx{}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	admins := map[int64]struct{}{employerActor: {}, employerActor + 1: {}}

	h := &harness{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		profiles:  NewProfileService(fakeActors{store}, fakeStudents{store}, fakeEmployers{store}, tx, admins),
		postings:  NewPostingService(fakePostings{store}, fakeEmployers{store}, fakeApplications{store}, tx, publisher, nil),
		applications: NewApplicationService(ApplicationDeps{
			Repo:      fakeApplications{store},
			Postings:  fakePostings{store},
			Students:  fakeStudents{store},
			Employers: fakeEmployers{store},
			Actors:    fakeActors{store},
			Tx:        tx,
			Notifier:  notifier,
			Texts:     catalog,
			Publisher: publisher,
		}),
	}
	clock := time.Date(2024, 4, 1, 10, 0, 0, 0, time.Local)
	var clockMu sync.Mutex
	h.applications.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	return h
}

func (h *harness) employer(t *testing.T, actorID int64, company string) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := h.profiles.SelectLanguage(ctx, actorID, "en"); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := h.profiles.CreateEmployer(ctx, actorID, map[string]string{"company_name": company, "contact_phone": "+7700"}); err != nil {
		t.Fatalf("create employer: %v", err)
	}
}

func (h *harness) student(t *testing.T, actorID int64, name string) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := h.profiles.SelectLanguage(ctx, actorID, "en"); err != nil {
		t.Fatalf("select language: %v", err)
	}
	_, err := h.profiles.CreateStudent(ctx, actorID, map[string]string{
		"full_name": name, "phone": "+77011112233", "course": "3", "major": "Computer Science", "about": "Likes Go",
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
}

func (h *harness) posting(t *testing.T, actorID int64, title string) *posting.Posting {
	t.Helper()
	p, err := h.postings.Create(context.Background(), actorID, map[string]string{"title": title, "description": "Build APIs"})
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}
	return p
}

func TestSelectLanguageAssignsRoleFromEmployerSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, created, err := h.profiles.SelectLanguage(ctx, studentActor, "en")
	if err != nil || !created {
		t.Fatalf("expected actor creation, got created=%v err=%v", created, err)
	}
	if a.Role != actor.RoleStudent || a.Language != "en" {
		t.Fatalf("unexpected actor %+v", a)
	}

	a, _, err = h.profiles.SelectLanguage(ctx, employerActor, "kk")
	if err != nil || a.Role != actor.RoleEmployer {
		t.Fatalf("expected employer role, got %+v err=%v", a, err)
	}

	a, created, err = h.profiles.SelectLanguage(ctx, studentActor, "ru")
	if err != nil || created {
		t.Fatalf("expected language update, got created=%v err=%v", created, err)
	}
	if a.Role != actor.RoleStudent || a.Language != "ru" {
		t.Fatalf("role must stay fixed, got %+v", a)
	}
}

func TestProfilesAreCreatedOnce(t *testing.T) {
	h := newHarness(t)
	h.student(t, studentActor, "Aru")

	_, err := h.profiles.CreateStudent(context.Background(), studentActor, map[string]string{"full_name": "Again"})
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := h.profiles.EditStudentProfile(context.Background(), studentActor); !common.Is(err, common.CodeUnsupported) {
		t.Fatalf("expected unsupported edit, got %v", err)
	}
}

func TestApplyNotifiesEmployerAndRejectsRepeat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.student(t, studentActor, "Aru Sadykova")
	p := h.posting(t, employerActor, "Backend intern")

	created, err := h.applications.Apply(ctx, studentActor, p.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if created.Status != application.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	msgs := h.notifier.to(employerActor)
	if len(msgs) != 1 {
		t.Fatalf("expected one employer notification, got %d", len(msgs))
	}
	for _, want := range []string{"Aru Sadykova", "3", "Computer Science", "+77011112233", "Likes Go", "Backend intern"} {
		if !strings.Contains(msgs[0].Text, want) {
			t.Fatalf("notification missing %q: %s", want, msgs[0].Text)
		}
	}

	if _, err := h.applications.Apply(ctx, studentActor, p.ID); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected already applied, got %v", err)
	}
	if _, err := h.applications.SetStatus(ctx, employerActor, created.ID, application.StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := h.applications.Apply(ctx, studentActor, p.ID); !common.Is(err, common.CodeConflict) {
		t.Fatalf("rejected application must still block a repeat, got %v", err)
	}
}

func TestApplyToInactivePostingCreatesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.student(t, studentActor, "Aru")
	p := h.posting(t, employerActor, "Backend intern")

	if err := h.postings.SetActive(ctx, employerActor, p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := h.applications.Apply(ctx, studentActor, p.ID); !common.Is(err, common.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := h.applications.Apply(ctx, studentActor, 9999); !common.Is(err, common.CodeUnavailable) {
		t.Fatalf("missing posting must be unavailable, got %v", err)
	}
	if n := len(h.store.applications); n != 0 {
		t.Fatalf("expected no applications, got %d", n)
	}
}

func TestApplyRequiresStudentProfile(t *testing.T) {
	h := newHarness(t)
	h.employer(t, employerActor, "Acme")
	p := h.posting(t, employerActor, "Backend intern")

	_, err := h.applications.Apply(context.Background(), studentActor, p.ID)
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.store.students) != 0 {
		t.Fatalf("apply must never create a student profile")
	}
}

func TestConcurrentApplyCreatesOneApplication(t *testing.T) {
	h := newHarness(t)
	h.employer(t, employerActor, "Acme")
	h.student(t, studentActor, "Aru")
	p := h.posting(t, employerActor, "Backend intern")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.applications.Apply(context.Background(), studentActor, p.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful apply, got %d", successes)
	}
}

func TestAcceptStampsReviewAndNotifiesApplicantOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.student(t, studentActor, "Aru")
	p := h.posting(t, employerActor, "Backend intern")
	created, err := h.applications.Apply(ctx, studentActor, p.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	detail, err := h.applications.SetStatus(ctx, employerActor, created.ID, application.StatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if detail.ReviewedAt == nil || detail.ReviewedAt.Before(created.AppliedAt) {
		t.Fatalf("reviewed_at must be set and not before applied_at: %+v", detail)
	}
	stored, _ := fakeApplications{h.store}.GetByID(ctx, created.ID)
	if stored.Status != application.StatusAccepted || stored.ReviewedAt == nil {
		t.Fatalf("status not persisted: %+v", stored)
	}

	studentMsgs := h.notifier.to(studentActor)
	if len(studentMsgs) != 1 {
		t.Fatalf("expected exactly one applicant notification, got %d", len(studentMsgs))
	}
	if !strings.Contains(studentMsgs[0].Text, "Backend intern") || !strings.Contains(studentMsgs[0].Text, "Acme") {
		t.Fatalf("accepted message must name posting and company: %s", studentMsgs[0].Text)
	}
	if echoes := h.notifier.to(employerActor); len(echoes) != 2 {
		t.Fatalf("expected new-application notice plus confirmation echo, got %d", len(echoes))
	}

	if _, err := h.applications.SetStatus(ctx, employerActor, created.ID, application.StatusRejected); !common.Is(err, common.CodeValidation) {
		t.Fatalf("accepted must be final, got %v", err)
	}
}

func TestSetStatusByOtherEmployerIsForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.employer(t, employerActor+1, "Globex")
	h.student(t, studentActor, "Aru")
	p := h.posting(t, employerActor, "Backend intern")
	created, err := h.applications.Apply(ctx, studentActor, p.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = h.applications.SetStatus(ctx, employerActor+1, created.ID, application.StatusAccepted)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	stored, _ := fakeApplications{h.store}.GetByID(ctx, created.ID)
	if stored.Status != application.StatusPending || stored.ReviewedAt != nil {
		t.Fatalf("application must be unchanged: %+v", stored)
	}
	if msgs := h.notifier.to(studentActor); len(msgs) != 0 {
		t.Fatalf("no notification expected, got %d", len(msgs))
	}
}

func TestDeletePostingRemovesApplications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	p := h.posting(t, employerActor, "Backend intern")
	for i := int64(0); i < 3; i++ {
		h.student(t, studentActor+i, "Student")
		if _, err := h.applications.Apply(ctx, studentActor+i, p.ID); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	if err := h.postings.Delete(ctx, employerActor, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := h.postings.Details(ctx, p.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(h.store.applications); n != 0 {
		t.Fatalf("expected applications to be removed, got %d", n)
	}
	if err := h.postings.Delete(ctx, employerActor, p.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("second delete must report not found, got %v", err)
	}
	if last := h.publisher.subjects[len(h.publisher.subjects)-1]; last != events.SubjectPostingDeleted {
		t.Fatalf("expected posting deleted event, got %s", last)
	}
}

func TestToggleTwiceRestoresVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	p := h.posting(t, employerActor, "Backend intern")

	visible := func() bool {
		listings, err := h.postings.ListActive(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, l := range listings {
			if l.ID == p.ID {
				return true
			}
		}
		return false
	}
	if !visible() {
		t.Fatalf("new postings must be active")
	}
	if err := h.postings.SetActive(ctx, employerActor, p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if visible() {
		t.Fatalf("inactive posting must be hidden")
	}
	if err := h.postings.SetActive(ctx, employerActor, p.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !visible() {
		t.Fatalf("toggling twice must restore visibility")
	}
}

func TestSetActiveOnForeignPosting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.employer(t, employerActor+1, "Globex")
	p := h.posting(t, employerActor, "Backend intern")

	if err := h.postings.SetActive(ctx, employerActor+1, p.ID, false); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := h.postings.SetActive(ctx, employerActor, 4242, false); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreatePostingRequiresEmployerProfile(t *testing.T) {
	h := newHarness(t)
	_, err := h.postings.Create(context.Background(), employerActor, map[string]string{"title": "t", "description": "d"})
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestCreatePostingAcceptsBlankAnswers(t *testing.T) {
	h := newHarness(t)
	h.employer(t, employerActor, "Acme")

	created, err := h.postings.Create(context.Background(), employerActor, map[string]string{"title": "  ", "description": ""})
	if err != nil {
		t.Fatalf("expected blank posting fields to be accepted, got %v", err)
	}
	if created.Title != "" || !created.IsActive {
		t.Fatalf("unexpected posting %+v", created)
	}
}

func TestExportWritesEmployerApplications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.employer(t, employerActor, "Acme")
	h.student(t, studentActor, "Aru")
	p := h.posting(t, employerActor, "Backend intern")
	if _, err := h.applications.Apply(ctx, studentActor, p.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var buf bytes.Buffer
	count, err := h.applications.Export(ctx, employerActor, "en", &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if count != 1 || buf.Len() == 0 {
		t.Fatalf("expected one exported row, got count=%d size=%d", count, buf.Len())
	}
}
