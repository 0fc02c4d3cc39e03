package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internbot/internal/common"
	"internbot/internal/domain/posting"
)

const postingColumns = `p.id, p.employer_id, p.title, p.description, p.salary, p.requirements, p.is_active, p.created_at`

type PostingRepository struct {
	db *sql.DB
}

func NewPostingRepository(db *sql.DB) *PostingRepository {
	return &PostingRepository{db: db}
}

func (r *PostingRepository) Create(ctx context.Context, p posting.Posting) (*posting.Posting, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	row := conn(ctx, r.db).QueryRowContext(ctx, `INSERT INTO postings (employer_id, title, description, salary, requirements, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.EmployerID, p.Title, p.Description, p.Salary, p.Requirements, p.IsActive, formatTime(p.CreatedAt))
	if err := row.Scan(&p.ID); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create posting", err)
	}
	return &p, nil
}

func (r *PostingRepository) GetByID(ctx context.Context, id int64) (*posting.Posting, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+postingColumns+` FROM postings p WHERE p.id = $1`, id)
	p, err := scanPosting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "posting not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load posting", err)
	}
	return p, nil
}

func (r *PostingRepository) GetListing(ctx context.Context, id int64) (*posting.Listing, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+postingColumns+`, e.company_name, e.contact_phone
		FROM postings p JOIN employers e ON e.id = p.employer_id WHERE p.id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "posting not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load posting", err)
	}
	return l, nil
}

func (r *PostingRepository) ListActive(ctx context.Context) ([]posting.Listing, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+postingColumns+`, e.company_name, e.contact_phone
		FROM postings p JOIN employers e ON e.id = p.employer_id
		WHERE p.is_active = $1
		ORDER BY p.created_at DESC, p.id DESC`, true)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list postings", err)
	}
	defer rows.Close()
	var items []posting.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan posting", err)
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list postings", err)
	}
	return items, nil
}

func (r *PostingRepository) ListByEmployer(ctx context.Context, employerID int64) ([]posting.Posting, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+postingColumns+` FROM postings p
		WHERE p.employer_id = $1 ORDER BY p.created_at DESC, p.id DESC`, employerID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list employer postings", err)
	}
	defer rows.Close()
	var items []posting.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan posting", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list employer postings", err)
	}
	return items, nil
}

func (r *PostingRepository) SetActive(ctx context.Context, id, employerID int64, active bool) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE postings SET is_active = $1 WHERE id = $2 AND employer_id = $3`, active, id, employerID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to update posting", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, "posting not found", sql.ErrNoRows)
	}
	return nil
}

func (r *PostingRepository) Delete(ctx context.Context, id int64) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM applications WHERE posting_id = $1`, id); err != nil {
		return common.NewError(common.CodeInternal, "failed to delete posting applications", err)
	}
	result, err := q.ExecContext(ctx, `DELETE FROM postings WHERE id = $1`, id)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to delete posting", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, "posting not found", sql.ErrNoRows)
	}
	return nil
}

func scanPosting(row scanner) (*posting.Posting, error) {
	var (
		p         posting.Posting
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.EmployerID, &p.Title, &p.Description, &p.Salary, &p.Requirements, &p.IsActive, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanListing(row scanner) (*posting.Listing, error) {
	var (
		l         posting.Listing
		createdAt string
	)
	if err := row.Scan(&l.ID, &l.EmployerID, &l.Title, &l.Description, &l.Salary, &l.Requirements, &l.IsActive, &createdAt,
		&l.CompanyName, &l.ContactPhone); err != nil {
		return nil, err
	}
	var err error
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}
