package profile

import (
	"context"
	"time"
)

type Student struct {
	ID        int64
	ActorID   int64
	FullName  string
	Phone     string
	Course    string
	Major     string
	About     string
	CreatedAt time.Time
}

type Employer struct {
	ID           int64
	ActorID      int64
	CompanyName  string
	ContactPhone string
	CreatedAt    time.Time
}

// StudentRepository persists student profiles. Create fails with a conflict
// when the actor already has one.
type StudentRepository interface {
	Create(ctx context.Context, s Student) (*Student, error)
	GetByActorID(ctx context.Context, actorID int64) (*Student, error)
	List(ctx context.Context) ([]Student, error)
}

type EmployerRepository interface {
	Create(ctx context.Context, e Employer) (*Employer, error)
	GetByActorID(ctx context.Context, actorID int64) (*Employer, error)
}
