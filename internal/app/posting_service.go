package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"internbot/internal/common"
	"internbot/internal/domain/application"
	"internbot/internal/domain/posting"
	"internbot/internal/domain/profile"
	"internbot/internal/events"
)

type PostingService struct {
	postings     posting.Repository
	employers    profile.EmployerRepository
	applications application.Repository
	tx           Transactor
	publisher    events.Publisher
	logger       *zap.Logger
}

func NewPostingService(postings posting.Repository, employers profile.EmployerRepository, applications application.Repository, tx Transactor, publisher events.Publisher, logger *zap.Logger) *PostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PostingService{
		postings:     postings,
		employers:    employers,
		applications: applications,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
	}
}

// Create is the single write of posting creation. New postings are active.
func (s *PostingService) Create(ctx context.Context, actorID int64, values map[string]string) (*posting.Posting, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	created, err := s.postings.Create(ctx, posting.Posting{
		EmployerID:   employer.ID,
		Title:        strings.TrimSpace(values["title"]),
		Description:  strings.TrimSpace(values["description"]),
		Salary:       strings.TrimSpace(values["salary"]),
		Requirements: strings.TrimSpace(values["requirements"]),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger, events.SubjectPostingCreated, events.PostingCreated{
		PostingID:  created.ID,
		EmployerID: employer.ID,
		Title:      created.Title,
		CreatedAt:  created.CreatedAt,
	})
	return created, nil
}

func (s *PostingService) ListActive(ctx context.Context) ([]posting.Listing, error) {
	return s.postings.ListActive(ctx)
}

// Details returns a posting with its employer details and the number of
// applications it received.
func (s *PostingService) Details(ctx context.Context, postingID int64) (*posting.Listing, int, error) {
	listing, err := s.postings.GetListing(ctx, postingID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.applications.CountByPosting(ctx, postingID)
	if err != nil {
		return nil, 0, err
	}
	return listing, count, nil
}

// Owned returns a posting after checking that actorID's employer owns it.
func (s *PostingService) Owned(ctx context.Context, actorID, postingID int64) (*posting.Listing, int, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, 0, notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	listing, count, err := s.Details(ctx, postingID)
	if err != nil {
		return nil, 0, err
	}
	if listing.EmployerID != employer.ID {
		return nil, 0, common.NewError(common.CodeForbidden, "posting belongs to another employer", nil)
	}
	return listing, count, nil
}

func (s *PostingService) ListByEmployer(ctx context.Context, actorID int64) ([]posting.Posting, error) {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	return s.postings.ListByEmployer(ctx, employer.ID)
}

// SetActive toggles visibility of a posting owned by actorID's employer.
func (s *PostingService) SetActive(ctx context.Context, actorID, postingID int64, active bool) error {
	employer, err := s.employers.GetByActorID(ctx, actorID)
	if err != nil {
		return notFoundAs(err, common.CodeValidation, "employer profile is required")
	}
	err = s.postings.SetActive(ctx, postingID, employer.ID, active)
	if err == nil || !common.Is(err, common.CodeNotFound) {
		return err
	}
	if _, lookupErr := s.postings.GetByID(ctx, postingID); lookupErr != nil {
		return lookupErr
	}
	return common.NewError(common.CodeForbidden, "posting belongs to another employer", nil)
}

// Delete removes a posting and all of its applications. It is an
// administrative action and does not check ownership.
func (s *PostingService) Delete(ctx context.Context, actorID, postingID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.postings.GetByID(ctx, postingID); err != nil {
			return err
		}
		return s.postings.Delete(ctx, postingID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("posting deleted", zap.Int64("posting_id", postingID), zap.Int64("actor_id", actorID))
	publish(ctx, s.publisher, s.logger, events.SubjectPostingDeleted, events.PostingDeleted{PostingID: postingID, DeletedBy: actorID})
	return nil
}
