package posting

import (
	"context"
	"time"
)

type Posting struct {
	ID           int64
	EmployerID   int64
	Title        string
	Description  string
	Salary       string
	Requirements string
	IsActive     bool
	CreatedAt    time.Time
}

// Listing is a posting joined with its employer's public details.
type Listing struct {
	Posting
	CompanyName  string
	ContactPhone string
}

type Repository interface {
	Create(ctx context.Context, p Posting) (*Posting, error)
	GetByID(ctx context.Context, id int64) (*Posting, error)
	GetListing(ctx context.Context, id int64) (*Listing, error)
	ListActive(ctx context.Context) ([]Listing, error)
	ListByEmployer(ctx context.Context, employerID int64) ([]Posting, error)
	// SetActive only touches postings owned by employerID and reports
	// not found otherwise.
	SetActive(ctx context.Context, id, employerID int64, active bool) error
	// Delete removes the posting and every application that references it.
	Delete(ctx context.Context, id int64) error
}
