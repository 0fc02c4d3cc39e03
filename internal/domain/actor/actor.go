package actor

import (
	"context"
	"time"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
)

// Actor is an external chat identity. ID is the transport's user id and is
// also the address notifications are sent to.
type Actor struct {
	ID        int64
	Role      Role
	Language  string
	CreatedAt time.Time
}

type Repository interface {
	Get(ctx context.Context, id int64) (*Actor, error)
	Create(ctx context.Context, a Actor) (*Actor, error)
	UpdateLanguage(ctx context.Context, id int64, language string) error
}
