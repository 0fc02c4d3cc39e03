package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internbot/internal/common"
	"internbot/internal/domain/actor"
)

type ActorRepository struct {
	db *sql.DB
}

func NewActorRepository(db *sql.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) Get(ctx context.Context, id int64) (*actor.Actor, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT actor_id, role, language, created_at FROM actors WHERE actor_id = $1`, id)
	var (
		a         actor.Actor
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.Role, &a.Language, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "actor not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load actor", err)
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to load actor", err)
	}
	return &a, nil
}

func (r *ActorRepository) Create(ctx context.Context, a actor.Actor) (*actor.Actor, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, `INSERT INTO actors (actor_id, role, language, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Role, a.Language, formatTime(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeConflict, "actor already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create actor", err)
	}
	return &a, nil
}

func (r *ActorRepository) UpdateLanguage(ctx context.Context, id int64, language string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE actors SET language = $1 WHERE actor_id = $2`, language, id)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to update language", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, "actor not found", sql.ErrNoRows)
	}
	return nil
}
