package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internbot/internal/common"
	"internbot/internal/domain/profile"
)

const studentColumns = `id, actor_id, full_name, phone, course, major, about, created_at`

type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, s profile.Student) (*profile.Student, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	row := conn(ctx, r.db).QueryRowContext(ctx, `INSERT INTO students (actor_id, full_name, phone, course, major, about, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.ActorID, s.FullName, s.Phone, s.Course, s.Major, s.About, formatTime(s.CreatedAt))
	if err := row.Scan(&s.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeConflict, "student profile already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create student profile", err)
	}
	return &s, nil
}

func (r *StudentRepository) GetByActorID(ctx context.Context, actorID int64) (*profile.Student, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE actor_id = $1`, actorID)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "student profile not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load student profile", err)
	}
	return s, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]profile.Student, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list students", err)
	}
	defer rows.Close()
	var items []profile.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan student", err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list students", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (*profile.Student, error) {
	var (
		s         profile.Student
		createdAt string
	)
	if err := row.Scan(&s.ID, &s.ActorID, &s.FullName, &s.Phone, &s.Course, &s.Major, &s.About, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}

type EmployerRepository struct {
	db *sql.DB
}

func NewEmployerRepository(db *sql.DB) *EmployerRepository {
	return &EmployerRepository{db: db}
}

func (r *EmployerRepository) Create(ctx context.Context, e profile.Employer) (*profile.Employer, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	row := conn(ctx, r.db).QueryRowContext(ctx, `INSERT INTO employers (actor_id, company_name, contact_phone, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		e.ActorID, e.CompanyName, e.ContactPhone, formatTime(e.CreatedAt))
	if err := row.Scan(&e.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeConflict, "employer profile already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create employer profile", err)
	}
	return &e, nil
}

func (r *EmployerRepository) GetByActorID(ctx context.Context, actorID int64) (*profile.Employer, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, actor_id, company_name, contact_phone, created_at FROM employers WHERE actor_id = $1`, actorID)
	var (
		e         profile.Employer
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.ActorID, &e.CompanyName, &e.ContactPhone, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "employer profile not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load employer profile", err)
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to load employer profile", err)
	}
	return &e, nil
}
