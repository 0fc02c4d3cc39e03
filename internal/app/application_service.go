package app

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"internbot/internal/common"
	"internbot/internal/domain/actor"
	"internbot/internal/domain/application"
	"internbot/internal/domain/posting"
	"internbot/internal/domain/profile"
	"internbot/internal/events"
	"internbot/internal/export"
	"internbot/internal/metrics"
	"internbot/internal/observability"
)

type ApplicationService struct {
	repo      application.Repository
	postings  posting.Repository
	students  profile.StudentRepository
	employers profile.EmployerRepository
	actors    actor.Repository
	tx        Transactor
	notifier  Notifier
	texts     Translator
	publisher events.Publisher
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

type ApplicationDeps struct {
	Repo      application.Repository
	Postings  posting.Repository
	Students  profile.StudentRepository
	Employers profile.EmployerRepository
	Actors    actor.Repository
	Tx        Transactor
	Notifier  Notifier
	Texts     Translator
	Publisher events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

func NewApplicationService(deps ApplicationDeps) *ApplicationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &ApplicationService{
		repo:      deps.Repo,
		postings:  deps.Postings,
		students:  deps.Students,
		employers: deps.Employers,
		actors:    deps.Actors,
		tx:        deps.Tx,
		notifier:  deps.Notifier,
		texts:     deps.Texts,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Apply records a pending application of actorID's student profile to a
// posting. The posting check, the duplicate check and the insert share one
// transaction; the unique (posting, student) index catches concurrent
// duplicates. The employer is notified after commit.
func (s *ApplicationService) Apply(ctx context.Context, actorID, postingID int64) (*application.Application, error) {
	ctx, span := tracer.Start(ctx, "app.Apply")
	defer span.End()
	span.SetAttributes(observability.Int64("actor_id", actorID), observability.Int64("posting_id", postingID))

	var created *application.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.postings.GetByID(ctx, postingID)
		if err != nil {
			return notFoundAs(err, common.CodeUnavailable, "posting is not available")
		}
		if !p.IsActive {
			return common.NewError(common.CodeUnavailable, "posting is not available", nil)
		}
		student, err := s.students.GetByActorID(ctx, actorID)
		if err != nil {
			return notFoundAs(err, common.CodeValidation, "student profile is required")
		}
		if _, err := s.repo.FindByPostingAndStudent(ctx, postingID, student.ID); err == nil {
			return common.NewError(common.CodeConflict, "already applied", nil)
		} else if !common.Is(err, common.CodeNotFound) {
			return err
		}
		created, err = s.repo.Create(ctx, application.Application{
			PostingID: postingID,
			StudentID: student.ID,
			Status:    application.StatusPending,
			AppliedAt: s.now(),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(common.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncApplications()

	detail, err := s.repo.GetDetail(ctx, created.ID)
	if err != nil {
		s.logger.Warn("application created but detail unavailable", zap.Int64("application_id", created.ID), zap.Error(err))
		return created, nil
	}
	lang := languageOf(ctx, s.actors, detail.EmployerActorID)
	s.notifier.Notify(ctx, newApplicationMessage(s.texts, lang, detail))
	publish(ctx, s.publisher, s.logger, events.SubjectApplicationCreated, events.ApplicationCreated{
		ApplicationID: created.ID,
		PostingID:     postingID,
		StudentID:     created.StudentID,
		EmployerID:    detail.EmployerID,
		AppliedAt:     created.AppliedAt,
	})
	return created, nil
}

// SetStatus moves an application owned by actorID's employer to status.
// The applicant and the employer are notified after commit.
func (s *ApplicationService) SetStatus(ctx context.Context, actorID, applicationID int64, status application.Status) (*application.Detail, error) {
	ctx, span := tracer.Start(ctx, "app.SetStatus")
	defer span.End()
	span.SetAttributes(observability.Int64("actor_id", actorID), observability.Int64("application_id", applicationID), observability.String("status", string(status)))

	var (
		detail *application.Detail
		from   application.Status
	)
	reviewedAt := s.now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		employer, err := s.employers.GetByActorID(ctx, actorID)
		if err != nil {
			return notFoundAs(err, common.CodeForbidden, "employer profile is required")
		}
		detail, err = s.repo.GetDetail(ctx, applicationID)
		if err != nil {
			return err
		}
		if detail.EmployerID != employer.ID {
			return common.NewError(common.CodeForbidden, "application belongs to another employer", nil)
		}
		from = detail.Status
		if err := application.ValidateTransition(from, status); err != nil {
			return common.NewError(common.CodeValidation, "status transition not allowed", err)
		}
		if err := s.repo.UpdateStatus(ctx, applicationID, employer.ID, from, status, reviewedAt); err != nil {
			if common.Is(err, common.CodeNotFound) {
				return common.NewError(common.CodeConflict, "application changed concurrently", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(common.CodeOf(err)))
		return nil, err
	}
	detail.Status = status
	detail.ReviewedAt = &reviewedAt
	s.metrics.IncStatusChange(string(status))

	studentLang := languageOf(ctx, s.actors, detail.StudentActorID)
	s.notifier.Notify(ctx, statusChangedMessage(s.texts, studentLang, detail))
	employerLang := languageOf(ctx, s.actors, actorID)
	s.notifier.Notify(ctx, statusEchoMessage(s.texts, employerLang, actorID, detail))

	publish(ctx, s.publisher, s.logger, events.SubjectApplicationStatusChanged, events.ApplicationStatusChanged{
		ApplicationID: applicationID,
		PostingID:     detail.PostingID,
		EmployerID:    detail.EmployerID,
		From:          string(from),
		To:            string(status),
		ReviewedAt:    reviewedAt,
	})
	return detail, nil
}

// Review returns an application for its owning employer.
func (s *ApplicationService) Review(ctx context.Context, actorID, applicationID int64) (*application.Detail, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeForbidden, "employer profile is required")
	}
	detail, err := s.repo.GetDetail(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if detail.EmployerID != employer.ID {
		return nil, common.NewError(common.CodeForbidden, "application belongs to another employer", nil)
	}
	return detail, nil
}

func (s *ApplicationService) ListForStudent(ctx context.Context, actorID int64) ([]application.Detail, error) {
	student, err := s.students.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeValidation, "student profile is required")
	}
	return s.repo.ListByStudent(ctx, student.ID)
}

func (s *ApplicationService) ListForEmployer(ctx context.Context, actorID int64) ([]application.Detail, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	return s.repo.ListByEmployer(ctx, employer.ID)
}

func (s *ApplicationService) ListForPosting(ctx context.Context, actorID, postingID int64) ([]application.Detail, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	p, err := s.postings.GetByID(ctx, postingID)
	if err != nil {
		return nil, err
	}
	if p.EmployerID != employer.ID {
		return nil, common.NewError(common.CodeForbidden, "posting belongs to another employer", nil)
	}
	return s.repo.ListByPosting(ctx, postingID)
}

// Delete removes a single application. It is an administrative action.
func (s *ApplicationService) Delete(ctx context.Context, actorID, applicationID int64) error {
	if err := s.repo.Delete(ctx, applicationID); err != nil {
		return err
	}
	s.logger.Info("application deleted", zap.Int64("application_id", applicationID), zap.Int64("actor_id", actorID))
	return nil
}

// Export writes the applications of actorID's employer as a workbook and
// returns how many rows it holds.
func (s *ApplicationService) Export(ctx context.Context, actorID int64, lang string, w io.Writer) (int, error) {
	details, err := s.ListForEmployer(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if err := export.WriteApplications(w, s.texts, lang, details); err != nil {
		return 0, common.NewError(common.CodeInternal, "export applications", err)
	}
	return len(details), nil
}
