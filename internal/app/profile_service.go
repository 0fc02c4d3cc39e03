package app

import (
	"context"
	"strings"

	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/domain/profile"
	"internbot/internal/i18n"
)

type ProfileService struct {
	actors    actor.Repository
	students  profile.StudentRepository
	employers profile.EmployerRepository
	tx        Transactor
	admins    map[int64]struct{}
}

func NewProfileService(actors actor.Repository, students profile.StudentRepository, employers profile.EmployerRepository, tx Transactor, admins map[int64]struct{}) *ProfileService {
	if admins == nil {
		admins = map[int64]struct{}{}
	}
	return &ProfileService{actors: actors, students: students, employers: employers, tx: tx, admins: admins}
}

// IsEmployer reports membership in the configured employer set. It is the
// only gate for employer-only actions.
func (s *ProfileService) IsEmployer(actorID int64) bool {
	_, ok := s.admins[actorID]
	return ok
}

func (s *ProfileService) Actor(ctx context.Context, actorID int64) (*actor.Actor, error) {
	return s.actors.Get(ctx, actorID)
}

// SelectLanguage stores the language of an actor, creating the actor on
// first contact. The role is fixed at creation from the employer set.
func (s *ProfileService) SelectLanguage(ctx context.Context, actorID int64, language string) (*actor.Actor, bool, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, false, common.NewError(common.CodeValidation, "language is required", nil)
	}
	var (
		result  *actor.Actor
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.actors.Get(ctx, actorID)
		if err == nil {
			if err := s.actors.UpdateLanguage(ctx, actorID, language); err != nil {
				return err
			}
			existing.Language = language
			result = existing
			return nil
		}
		if !common.Is(err, common.CodeNotFound) {
			return err
		}
		role := actor.RoleStudent
		if s.IsEmployer(actorID) {
			role = actor.RoleEmployer
		}
		result, err = s.actors.Create(ctx, actor.Actor{ID: actorID, Role: role, Language: language})
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// CreateStudent is the single write of student registration.
func (s *ProfileService) CreateStudent(ctx context.Context, actorID int64, values map[string]string) (*profile.Student, error) {
	var created *profile.Student
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureActor(ctx, actorID); err != nil {
			return err
		}
		if _, err := s.students.GetByActorID(ctx, actorID); err == nil {
			return common.NewError(common.CodeConflict, "student profile already exists", nil)
		} else if !common.Is(err, common.CodeNotFound) {
			return err
		}
		var err error
		created, err = s.students.Create(ctx, profile.Student{
			ActorID:  actorID,
			FullName: values["full_name"],
			Phone:    values["phone"],
			Course:   values["course"],
			Major:    values["major"],
			About:    values["about"],
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateEmployer is the single write of employer registration.
func (s *ProfileService) CreateEmployer(ctx context.Context, actorID int64, values map[string]string) (*profile.Employer, error) {
	var created *profile.Employer
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureActor(ctx, actorID); err != nil {
			return err
		}
		if _, err := s.employers.GetByActorID(ctx, actorID); err == nil {
			return common.NewError(common.CodeConflict, "employer profile already exists", nil)
		} else if !common.Is(err, common.CodeNotFound) {
			return err
		}
		var err error
		created, err = s.employers.Create(ctx, profile.Employer{
			ActorID:      actorID,
			CompanyName:  values["company_name"],
			ContactPhone: values["contact_phone"],
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ensureActor creates the actor row for someone who skipped the language
// picker, so profile rows always have a parent.
func (s *ProfileService) ensureActor(ctx context.Context, actorID int64) error {
	_, err := s.actors.Get(ctx, actorID)
	if err == nil || !common.Is(err, common.CodeNotFound) {
		return err
	}
	role := actor.RoleStudent
	if s.IsEmployer(actorID) {
		role = actor.RoleEmployer
	}
	_, err = s.actors.Create(ctx, actor.Actor{ID: actorID, Role: role, Language: i18n.DefaultLanguage})
	return err
}

func (s *ProfileService) StudentProfile(ctx context.Context, actorID int64) (*profile.Student, error) {
	return s.students.GetByActorID(ctx, actorID)
}

func (s *ProfileService) EmployerProfile(ctx context.Context, actorID int64) (*profile.Employer, error) {
	return s.employers.GetByActorID(ctx, actorID)
}

func (s *ProfileService) ListStudents(ctx context.Context) ([]profile.Student, error) {
	return s.students.List(ctx)
}

// EditStudentProfile is reserved for profile editing, which is not offered.
func (s *ProfileService) EditStudentProfile(ctx context.Context, actorID int64) error {
	return common.NewError(common.CodeUnsupported, "profile editing is not available", nil)
}
