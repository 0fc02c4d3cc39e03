package flow

import (
	"context"
	"strings"

	"internbot/internal/common"
	"internbot/internal/session"
)

const (
	StudentRegistration  = "student_registration"
	EmployerRegistration = "employer_registration"
	PostingCreation      = "posting_creation"
)

// Step collects one field. Any answer is stored trimmed, empty included;
// checks belong to the Validator. Phone steps also accept a shared
// contact, which wins over any text.
type Step struct {
	Field          string
	PromptKey      string
	AcceptsContact bool
}

type Definition struct {
	Name  string
	Steps []Step
}

func Definitions() map[string]Definition {
	return map[string]Definition{
		StudentRegistration: {
			Name: StudentRegistration,
			Steps: []Step{
				{Field: "full_name", PromptKey: "student_register"},
				{Field: "phone", PromptKey: "enter_phone", AcceptsContact: true},
				{Field: "course", PromptKey: "enter_course"},
				{Field: "major", PromptKey: "enter_major"},
				{Field: "about", PromptKey: "enter_about"},
			},
		},
		EmployerRegistration: {
			Name: EmployerRegistration,
			Steps: []Step{
				{Field: "company_name", PromptKey: "employer_register"},
				{Field: "contact_phone", PromptKey: "company_name_saved", AcceptsContact: true},
			},
		},
		PostingCreation: {
			Name: PostingCreation,
			Steps: []Step{
				{Field: "title", PromptKey: "enter_job_title"},
				{Field: "description", PromptKey: "enter_job_description"},
				{Field: "salary", PromptKey: "enter_salary"},
				{Field: "requirements", PromptKey: "enter_requirements"},
			},
		},
	}
}

// Input is one inbound text or shared contact.
type Input struct {
	Text  string
	Phone string
}

// Committer performs the single write at the end of a flow.
type Committer interface {
	Commit(ctx context.Context, actorID int64, values map[string]string) error
}

type CommitFunc func(ctx context.Context, actorID int64, values map[string]string) error

func (f CommitFunc) Commit(ctx context.Context, actorID int64, values map[string]string) error {
	return f(ctx, actorID, values)
}

// Validator may reject a field value. Without one every answer is taken.
type Validator func(flow, field, value string) error

type Result struct {
	// Flow is the flow the input was applied to.
	Flow string
	// Done is set once the flow committed.
	Done bool
	// Next is the step now awaiting input; nil when nothing is active.
	Next *Step
	// Chained names the flow started from a pending intent after Done.
	Chained string
}

type Machine struct {
	defs       map[string]Definition
	committers map[string]Committer
	validate   Validator
}

func NewMachine(committers map[string]Committer, validate Validator) *Machine {
	return &Machine{
		defs:       Definitions(),
		committers: committers,
		validate:   validate,
	}
}

// Start replaces whatever flow the session had and returns the first step.
func (m *Machine) Start(s *session.Session, name string) (Step, error) {
	def, ok := m.defs[name]
	if !ok || len(def.Steps) == 0 {
		return Step{}, common.NewError(common.CodeValidation, "unknown flow "+name, nil)
	}
	s.Flow = name
	s.Step = 0
	s.Values = make(map[string]string, len(def.Steps))
	return def.Steps[0], nil
}

// Cancel discards collected values and any pending intent.
func (m *Machine) Cancel(s *session.Session) {
	s.ClearFlow()
	s.Pending = session.IntentNone
}

// Current returns the step awaiting input.
func (m *Machine) Current(s *session.Session) (Step, bool) {
	def, ok := m.defs[s.Flow]
	if !ok || s.Step < 0 || s.Step >= len(def.Steps) {
		return Step{}, false
	}
	return def.Steps[s.Step], true
}

// Advance applies one input to the active flow. Nothing is persisted until
// the last step, where the flow's committer runs. A failed commit clears
// the flow.
func (m *Machine) Advance(ctx context.Context, s *session.Session, in Input) (Result, error) {
	step, ok := m.Current(s)
	if !ok {
		s.ClearFlow()
		return Result{}, common.NewError(common.CodeValidation, "no active flow", nil)
	}
	result := Result{Flow: s.Flow}

	value := strings.TrimSpace(in.Text)
	if step.AcceptsContact && strings.TrimSpace(in.Phone) != "" {
		value = strings.TrimSpace(in.Phone)
	}
	if m.validate != nil {
		if err := m.validate(s.Flow, step.Field, value); err != nil {
			result.Next = &step
			return result, common.NewError(common.CodeValidation, err.Error(), err)
		}
	}

	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[step.Field] = value
	s.Step++

	if next, ok := m.Current(s); ok {
		result.Next = &next
		return result, nil
	}

	name, values := s.Flow, s.Values
	s.ClearFlow()
	committer, ok := m.committers[name]
	if !ok {
		s.Pending = session.IntentNone
		return result, common.NewError(common.CodeInternal, "no committer for flow "+name, nil)
	}
	if err := committer.Commit(ctx, s.ActorID, values); err != nil {
		s.Pending = session.IntentNone
		return result, err
	}
	result.Done = true

	if name == EmployerRegistration && s.Pending == session.IntentCreatePosting {
		s.Pending = session.IntentNone
		first, err := m.Start(s, PostingCreation)
		if err != nil {
			return result, err
		}
		result.Chained = PostingCreation
		result.Next = &first
	}
	return result, nil
}
