package events

import (
	"context"
	"time"
)

const (
	SubjectApplicationCreated       = "internbot.application.created"
	SubjectApplicationStatusChanged = "internbot.application.status_changed"
	SubjectPostingCreated           = "internbot.posting.created"
	SubjectPostingDeleted           = "internbot.posting.deleted"
)

// Publisher emits domain events after the owning write committed.
// Publishing is best effort and never undoes the write.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

type ApplicationCreated struct {
	ApplicationID int64     `json:"application_id"`
	PostingID     int64     `json:"posting_id"`
	StudentID     int64     `json:"student_id"`
	EmployerID    int64     `json:"employer_id"`
	AppliedAt     time.Time `json:"applied_at"`
}

type ApplicationStatusChanged struct {
	ApplicationID int64     `json:"application_id"`
	PostingID     int64     `json:"posting_id"`
	EmployerID    int64     `json:"employer_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

type PostingCreated struct {
	PostingID  int64     `json:"posting_id"`
	EmployerID int64     `json:"employer_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

type PostingDeleted struct {
	PostingID int64 `json:"posting_id"`
	DeletedBy int64 `json:"deleted_by"`
}
