package application

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

type Application struct {
	ID         int64
	PostingID  int64
	StudentID  int64
	Status     Status
	AppliedAt  time.Time
	ReviewedAt *time.Time
	Notes      string
}

// Detail is an application joined with the applicant snapshot, the posting
// and its employer.
type Detail struct {
	Application
	StudentActorID  int64
	StudentName     string
	StudentPhone    string
	StudentCourse   string
	StudentMajor    string
	StudentAbout    string
	PostingTitle    string
	EmployerID      int64
	EmployerActorID int64
	CompanyName     string
}

type Repository interface {
	// Create fails with a conflict when the (posting, student) pair exists.
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	FindByPostingAndStudent(ctx context.Context, postingID, studentID int64) (*Application, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	ListByStudent(ctx context.Context, studentID int64) ([]Detail, error)
	ListByEmployer(ctx context.Context, employerID int64) ([]Detail, error)
	ListByPosting(ctx context.Context, postingID int64) ([]Detail, error)
	CountByPosting(ctx context.Context, postingID int64) (int, error)
	// UpdateStatus moves an application from one status to another. It only
	// touches rows whose posting belongs to employerID and whose status is
	// still from, and reports not found otherwise.
	UpdateStatus(ctx context.Context, id, employerID int64, from, to Status, reviewedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusUnderReview: {},
		StatusAccepted:    {},
		StatusRejected:    {},
	},
	StatusUnderReview: {
		StatusAccepted: {},
		StatusRejected: {},
	},
	StatusAccepted: {},
	StatusRejected: {},
}

func ValidateStatus(status Status) error {
	if _, ok := allowedTransitions[status]; !ok {
		return fmt.Errorf("invalid application status: %q", status)
	}
	return nil
}

func ValidateTransition(from, to Status) error {
	if err := ValidateStatus(from); err != nil {
		return err
	}
	if err := ValidateStatus(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid application transition: %s -> %s", from, to)
	}
	return nil
}

func IsFinal(status Status) bool {
	return status == StatusAccepted || status == StatusRejected
}
