package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internbot/internal/common"
	"internbot/internal/domain/application"
)

const applicationDetailQuery = `SELECT a.id, a.posting_id, a.student_id, a.status, a.applied_at, a.reviewed_at, a.notes,
	s.actor_id, s.full_name, s.phone, s.course, s.major, s.about,
	p.title, e.id, e.actor_id, e.company_name
	FROM applications a
	JOIN students s ON s.id = a.student_id
	JOIN postings p ON p.id = a.posting_id
	JOIN employers e ON e.id = p.employer_id`

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}
	if app.Status == "" {
		app.Status = application.StatusPending
	}
	row := conn(ctx, r.db).QueryRowContext(ctx, `INSERT INTO applications (posting_id, student_id, status, applied_at, notes)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		app.PostingID, app.StudentID, app.Status, formatTime(app.AppliedAt), app.Notes)
	if err := row.Scan(&app.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeConflict, "application already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, posting_id, student_id, status, applied_at, reviewed_at, notes FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) FindByPostingAndStudent(ctx context.Context, postingID, studentID int64) (*application.Application, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, posting_id, student_id, status, applied_at, reviewed_at, notes
		FROM applications WHERE posting_id = $1 AND student_id = $2`, postingID, studentID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) GetDetail(ctx context.Context, id int64) (*application.Detail, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, applicationDetailQuery+` WHERE a.id = $1`, id)
	d, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return d, nil
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID int64) ([]application.Detail, error) {
	return r.listDetails(ctx, applicationDetailQuery+` WHERE a.student_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, studentID)
}

func (r *ApplicationRepository) ListByEmployer(ctx context.Context, employerID int64) ([]application.Detail, error) {
	return r.listDetails(ctx, applicationDetailQuery+` WHERE p.employer_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, employerID)
}

func (r *ApplicationRepository) ListByPosting(ctx context.Context, postingID int64) ([]application.Detail, error) {
	return r.listDetails(ctx, applicationDetailQuery+` WHERE a.posting_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, postingID)
}

func (r *ApplicationRepository) CountByPosting(ctx context.Context, postingID int64) (int, error) {
	var count int
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE posting_id = $1`, postingID).Scan(&count); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count applications", err)
	}
	return count, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, employerID int64, from, to application.Status, reviewedAt time.Time) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE applications SET status = $1, reviewed_at = $2
		WHERE id = $3 AND status = $4 AND posting_id IN (SELECT id FROM postings WHERE employer_id = $5)`,
		to, formatTime(reviewedAt), id, from, employerID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to update application", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, "application not found", sql.ErrNoRows)
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to delete application", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, "application not found", sql.ErrNoRows)
	}
	return nil
}

func (r *ApplicationRepository) listDetails(ctx context.Context, query string, arg int64) ([]application.Detail, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()
	var items []application.Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	return items, nil
}

func scanApplication(row scanner) (*application.Application, error) {
	var (
		app        application.Application
		appliedAt  string
		reviewedAt sql.NullString
	)
	if err := row.Scan(&app.ID, &app.PostingID, &app.StudentID, &app.Status, &appliedAt, &reviewedAt, &app.Notes); err != nil {
		return nil, err
	}
	if err := fillTimes(&app, appliedAt, reviewedAt); err != nil {
		return nil, err
	}
	return &app, nil
}

func scanDetail(row scanner) (*application.Detail, error) {
	var (
		d          application.Detail
		appliedAt  string
		reviewedAt sql.NullString
	)
	if err := row.Scan(&d.ID, &d.PostingID, &d.StudentID, &d.Status, &appliedAt, &reviewedAt, &d.Notes,
		&d.StudentActorID, &d.StudentName, &d.StudentPhone, &d.StudentCourse, &d.StudentMajor, &d.StudentAbout,
		&d.PostingTitle, &d.EmployerID, &d.EmployerActorID, &d.CompanyName); err != nil {
		return nil, err
	}
	if err := fillTimes(&d.Application, appliedAt, reviewedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func fillTimes(app *application.Application, appliedAt string, reviewedAt sql.NullString) error {
	var err error
	if app.AppliedAt, err = parseTime(appliedAt); err != nil {
		return err
	}
	app.ReviewedAt, err = parseNullTime(reviewedAt)
	return err
}
