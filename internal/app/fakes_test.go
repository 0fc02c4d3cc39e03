package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"internbot/internal/chat"
	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/domain/application"
	"internbot/internal/domain/posting"
	"internbot/internal/domain/profile"
)

// memoryStore backs every repository fake so joins and cascades behave like
// the relational store.
type memoryStore struct {
	mu           sync.Mutex
	nextID       int64
	actors       map[int64]actor.Actor
	students     map[int64]profile.Student
	employers    map[int64]profile.Employer
	postings     map[int64]posting.Posting
	applications map[int64]application.Application
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		actors:       map[int64]actor.Actor{},
		students:     map[int64]profile.Student{},
		employers:    map[int64]profile.Employer{},
		postings:     map[int64]posting.Posting{},
		applications: map[int64]application.Application{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func notFound(what string) error {
	return common.NewError(common.CodeNotFound, what+" not found", nil)
}

// serialTx serializes transactions, like the single-connection store.
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

type fakeActors struct{ m *memoryStore }

func (f fakeActors) Get(ctx context.Context, id int64) (*actor.Actor, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	a, ok := f.m.actors[id]
	if !ok {
		return nil, notFound("actor")
	}
	return &a, nil
}

func (f fakeActors) Create(ctx context.Context, a actor.Actor) (*actor.Actor, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.actors[a.ID]; ok {
		return nil, common.NewError(common.CodeConflict, "actor exists", nil)
	}
	a.CreatedAt = time.Now()
	f.m.actors[a.ID] = a
	return &a, nil
}

func (f fakeActors) UpdateLanguage(ctx context.Context, id int64, language string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	a, ok := f.m.actors[id]
	if !ok {
		return notFound("actor")
	}
	a.Language = language
	f.m.actors[id] = a
	return nil
}

type fakeStudents struct{ m *memoryStore }

func (f fakeStudents) Create(ctx context.Context, s profile.Student) (*profile.Student, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, existing := range f.m.students {
		if existing.ActorID == s.ActorID {
			return nil, common.NewError(common.CodeConflict, "student exists", nil)
		}
	}
	s.ID = f.m.id()
	s.CreatedAt = time.Now()
	f.m.students[s.ID] = s
	return &s, nil
}

func (f fakeStudents) GetByActorID(ctx context.Context, actorID int64) (*profile.Student, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, s := range f.m.students {
		if s.ActorID == actorID {
			return &s, nil
		}
	}
	return nil, notFound("student")
}

func (f fakeStudents) List(ctx context.Context) ([]profile.Student, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []profile.Student
	for _, s := range f.m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeEmployers struct{ m *memoryStore }

func (f fakeEmployers) Create(ctx context.Context, e profile.Employer) (*profile.Employer, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, existing := range f.m.employers {
		if existing.ActorID == e.ActorID {
			return nil, common.NewError(common.CodeConflict, "employer exists", nil)
		}
	}
	e.ID = f.m.id()
	e.CreatedAt = time.Now()
	f.m.employers[e.ID] = e
	return &e, nil
}

func (f fakeEmployers) GetByActorID(ctx context.Context, actorID int64) (*profile.Employer, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, e := range f.m.employers {
		if e.ActorID == actorID {
			return &e, nil
		}
	}
	return nil, notFound("employer")
}

type fakePostings struct{ m *memoryStore }

func (f fakePostings) Create(ctx context.Context, p posting.Posting) (*posting.Posting, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	p.ID = f.m.id()
	p.CreatedAt = time.Now()
	f.m.postings[p.ID] = p
	return &p, nil
}

func (f fakePostings) GetByID(ctx context.Context, id int64) (*posting.Posting, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	p, ok := f.m.postings[id]
	if !ok {
		return nil, notFound("posting")
	}
	return &p, nil
}

func (f fakePostings) GetListing(ctx context.Context, id int64) (*posting.Listing, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	p, ok := f.m.postings[id]
	if !ok {
		return nil, notFound("posting")
	}
	l := f.m.listing(p)
	return &l, nil
}

func (m *memoryStore) listing(p posting.Posting) posting.Listing {
	e := m.employers[p.EmployerID]
	return posting.Listing{Posting: p, CompanyName: e.CompanyName, ContactPhone: e.ContactPhone}
}

func (f fakePostings) ListActive(ctx context.Context) ([]posting.Listing, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []posting.Listing
	for _, p := range f.m.postings {
		if p.IsActive {
			out = append(out, f.m.listing(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakePostings) ListByEmployer(ctx context.Context, employerID int64) ([]posting.Posting, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []posting.Posting
	for _, p := range f.m.postings {
		if p.EmployerID == employerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakePostings) SetActive(ctx context.Context, id, employerID int64, active bool) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	p, ok := f.m.postings[id]
	if !ok || p.EmployerID != employerID {
		return notFound("posting")
	}
	p.IsActive = active
	f.m.postings[id] = p
	return nil
}

func (f fakePostings) Delete(ctx context.Context, id int64) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.postings[id]; !ok {
		return notFound("posting")
	}
	for appID, a := range f.m.applications {
		if a.PostingID == id {
			delete(f.m.applications, appID)
		}
	}
	delete(f.m.postings, id)
	return nil
}

type fakeApplications struct{ m *memoryStore }

func (f fakeApplications) Create(ctx context.Context, a application.Application) (*application.Application, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, existing := range f.m.applications {
		if existing.PostingID == a.PostingID && existing.StudentID == a.StudentID {
			return nil, common.NewError(common.CodeConflict, "application exists", nil)
		}
	}
	a.ID = f.m.id()
	f.m.applications[a.ID] = a
	return &a, nil
}

func (f fakeApplications) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	a, ok := f.m.applications[id]
	if !ok {
		return nil, notFound("application")
	}
	return &a, nil
}

func (f fakeApplications) FindByPostingAndStudent(ctx context.Context, postingID, studentID int64) (*application.Application, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, a := range f.m.applications {
		if a.PostingID == postingID && a.StudentID == studentID {
			return &a, nil
		}
	}
	return nil, notFound("application")
}

func (m *memoryStore) detail(a application.Application) application.Detail {
	s := m.students[a.StudentID]
	p := m.postings[a.PostingID]
	e := m.employers[p.EmployerID]
	return application.Detail{
		Application:     a,
		StudentActorID:  s.ActorID,
		StudentName:     s.FullName,
		StudentPhone:    s.Phone,
		StudentCourse:   s.Course,
		StudentMajor:    s.Major,
		StudentAbout:    s.About,
		PostingTitle:    p.Title,
		EmployerID:      e.ID,
		EmployerActorID: e.ActorID,
		CompanyName:     e.CompanyName,
	}
}

func (f fakeApplications) GetDetail(ctx context.Context, id int64) (*application.Detail, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	a, ok := f.m.applications[id]
	if !ok {
		return nil, notFound("application")
	}
	d := f.m.detail(a)
	return &d, nil
}

func (f fakeApplications) list(match func(application.Detail) bool) []application.Detail {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []application.Detail
	for _, a := range f.m.applications {
		if d := f.m.detail(a); match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeApplications) ListByStudent(ctx context.Context, studentID int64) ([]application.Detail, error) {
	return f.list(func(d application.Detail) bool { return d.StudentID == studentID }), nil
}

func (f fakeApplications) ListByEmployer(ctx context.Context, employerID int64) ([]application.Detail, error) {
	return f.list(func(d application.Detail) bool { return d.EmployerID == employerID }), nil
}

func (f fakeApplications) ListByPosting(ctx context.Context, postingID int64) ([]application.Detail, error) {
	return f.list(func(d application.Detail) bool { return d.PostingID == postingID }), nil
}

func (f fakeApplications) CountByPosting(ctx context.Context, postingID int64) (int, error) {
	return len(f.list(func(d application.Detail) bool { return d.PostingID == postingID })), nil
}

func (f fakeApplications) UpdateStatus(ctx context.Context, id, employerID int64, from, to application.Status, reviewedAt time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	a, ok := f.m.applications[id]
	if !ok || a.Status != from || f.m.postings[a.PostingID].EmployerID != employerID {
		return notFound("application")
	}
	a.Status = to
	a.ReviewedAt = &reviewedAt
	f.m.applications[id] = a
	return nil
}

func (f fakeApplications) Delete(ctx context.Context, id int64) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.applications[id]; !ok {
		return notFound("application")
	}
	delete(f.m.applications, id)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []chat.Message
}

func (r *recordingNotifier) Notify(ctx context.Context, msg chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingNotifier) to(chatID int64) []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []chat.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}
