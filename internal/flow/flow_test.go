package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"internbot/internal/common"
	"internbot/internal/session"
)

type recordingCommitter struct {
	mu      sync.Mutex
	commits []map[string]string
	err     error
}

func (r *recordingCommitter) Commit(ctx context.Context, actorID int64, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.commits = append(r.commits, values)
	return nil
}

func newMachine(student, employer, posting *recordingCommitter) *Machine {
	return NewMachine(map[string]Committer{
		StudentRegistration:  student,
		EmployerRegistration: employer,
		PostingCreation:      posting,
	}, nil)
}

func TestStudentRegistrationCommitsOnceAtEnd(t *testing.T) {
	student := &recordingCommitter{}
	m := newMachine(student, &recordingCommitter{}, &recordingCommitter{})
	s := &session.Session{ActorID: 1}
	ctx := context.Background()

	if _, err := m.Start(s, StudentRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	inputs := []Input{
		{Text: "Aru Sadykova"},
		{Text: "typed number", Phone: "+77001234567"},
		{Text: "3"},
		{Text: "CS"},
	}
	for _, in := range inputs {
		res, err := m.Advance(ctx, s, in)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if res.Done {
			t.Fatalf("flow finished early")
		}
		if len(student.commits) != 0 {
			t.Fatalf("nothing may be committed before the last step")
		}
	}
	res, err := m.Advance(ctx, s, Input{Text: "  likes Go  "})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.Done || res.Next != nil || s.InFlow() {
		t.Fatalf("expected finished flow, got %+v", res)
	}
	if len(student.commits) != 1 {
		t.Fatalf("expected one commit, got %d", len(student.commits))
	}
	got := student.commits[0]
	if got["phone"] != "+77001234567" {
		t.Fatalf("contact must win over text, got %q", got["phone"])
	}
	if got["about"] != "likes Go" {
		t.Fatalf("expected trimmed about, got %q", got["about"])
	}
}

func TestCancelDiscardsValues(t *testing.T) {
	student := &recordingCommitter{}
	m := newMachine(student, &recordingCommitter{}, &recordingCommitter{})
	s := &session.Session{ActorID: 1, Pending: session.IntentCreatePosting}
	if _, err := m.Start(s, StudentRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Advance(context.Background(), s, Input{Text: "Aru"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	m.Cancel(s)
	if s.InFlow() || s.Values != nil || s.Pending != session.IntentNone {
		t.Fatalf("expected cleared session, got %+v", s)
	}
	if len(student.commits) != 0 {
		t.Fatalf("cancel must not commit")
	}
}

func TestEmployerRegistrationChainsIntoPosting(t *testing.T) {
	employer := &recordingCommitter{}
	posting := &recordingCommitter{}
	m := newMachine(&recordingCommitter{}, employer, posting)
	s := &session.Session{ActorID: 2, Pending: session.IntentCreatePosting}
	ctx := context.Background()

	if _, err := m.Start(s, EmployerRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Advance(ctx, s, Input{Text: "Acme"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	res, err := m.Advance(ctx, s, Input{Phone: "+77010000000"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.Done || res.Chained != PostingCreation || res.Next == nil || res.Next.Field != "title" {
		t.Fatalf("expected chain into posting creation, got %+v", res)
	}
	if s.Flow != PostingCreation || s.Pending != session.IntentNone {
		t.Fatalf("unexpected session after chain: %+v", s)
	}

	for _, text := range []string{"Backend intern", "APIs", "", "Go"} {
		if _, err := m.Advance(ctx, s, Input{Text: text}); err != nil {
			t.Fatalf("advance %q: %v", text, err)
		}
	}
	if len(posting.commits) != 1 || posting.commits[0]["salary"] != "" || posting.commits[0]["requirements"] != "Go" {
		t.Fatalf("unexpected posting commit: %+v", posting.commits)
	}
}

func TestEmployerRegistrationWithoutIntentEnds(t *testing.T) {
	m := newMachine(&recordingCommitter{}, &recordingCommitter{}, &recordingCommitter{})
	s := &session.Session{ActorID: 2}
	ctx := context.Background()
	if _, err := m.Start(s, EmployerRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = m.Advance(ctx, s, Input{Text: "Acme"})
	res, err := m.Advance(ctx, s, Input{Text: "+7701"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.Chained != "" || s.InFlow() {
		t.Fatalf("expected no chain, got %+v", res)
	}
}

func TestCommitFailureClearsFlow(t *testing.T) {
	boom := errors.New("db down")
	employer := &recordingCommitter{err: boom}
	m := newMachine(&recordingCommitter{}, employer, &recordingCommitter{})
	s := &session.Session{ActorID: 3, Pending: session.IntentCreatePosting}
	ctx := context.Background()
	if _, err := m.Start(s, EmployerRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = m.Advance(ctx, s, Input{Text: "Acme"})
	_, err := m.Advance(ctx, s, Input{Text: "+7701"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if s.InFlow() || s.Pending != session.IntentNone {
		t.Fatalf("expected cleared flow after failed commit, got %+v", s)
	}
}

func TestBlankInputIsAcceptedAsIs(t *testing.T) {
	m := newMachine(&recordingCommitter{}, &recordingCommitter{}, &recordingCommitter{})
	s := &session.Session{ActorID: 4}
	if _, err := m.Start(s, StudentRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := m.Advance(context.Background(), s, Input{Text: "   "})
	if err != nil {
		t.Fatalf("expected blank answer to be accepted, got %v", err)
	}
	if res.Next == nil || res.Next.Field != "phone" || s.Step != 1 {
		t.Fatalf("expected to move to the phone step, got %+v step=%d", res, s.Step)
	}
	if v, ok := s.Values["full_name"]; !ok || v != "" {
		t.Fatalf("expected trimmed empty name to be stored, got %q (present=%v)", v, ok)
	}
}

func TestValidatorHookRejectsWithoutAdvancing(t *testing.T) {
	m := NewMachine(map[string]Committer{StudentRegistration: &recordingCommitter{}}, func(flow, field, value string) error {
		if field == "course" && value == "0" {
			return errors.New("course must be positive")
		}
		return nil
	})
	s := &session.Session{ActorID: 5}
	ctx := context.Background()
	if _, err := m.Start(s, StudentRegistration); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = m.Advance(ctx, s, Input{Text: "Aru"})
	_, _ = m.Advance(ctx, s, Input{Text: "+7700"})
	if _, err := m.Advance(ctx, s, Input{Text: "0"}); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if step, _ := m.Current(s); step.Field != "course" {
		t.Fatalf("expected to stay on course, got %q", step.Field)
	}
}
