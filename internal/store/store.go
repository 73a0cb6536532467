// Package store owns the employers/postings schema and every query run
// against it.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/hh-collector/internal/model"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs every statement in autocommit mode on the handle it was given.
type Store struct {
	db DBTX
}

// New returns a Store bound to db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS employers (
	id          SERIAL PRIMARY KEY,
	external_id VARCHAR(50)  NOT NULL UNIQUE,
	name        VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
	id          SERIAL PRIMARY KEY,
	employer_id INTEGER NOT NULL REFERENCES employers(id),
	title       VARCHAR(255) NOT NULL,
	salary_low  INTEGER,
	salary_high INTEGER,
	currency    VARCHAR(10),
	url         TEXT NOT NULL,
	UNIQUE (employer_id, url)
);`

// EnsureSchema creates the tables if they are missing. Safe on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}
	return nil
}

// UpsertEmployer inserts the employer or refreshes its name, returning the
// internal id either way.
func (s *Store) UpsertEmployer(ctx context.Context, externalID, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO employers (external_id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		externalID, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsertEmployer %s: %w", externalID, err)
	}
	return id, nil
}

// InsertPosting stores a vacancy for the employer unless the same
// (employer, url) pair is already present. It reports whether a row was
// written; a conflict is not an error.
func (s *Store) InsertPosting(ctx context.Context, employerID int64, v model.Vacancy) (bool, error) {
	low, high, currency := v.SalaryBounds()

	tag, err := s.db.Exec(ctx,
		`INSERT INTO postings (employer_id, title, salary_low, salary_high, currency, url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT DO NOTHING`,
		employerID, v.Name, low, high, currency, v.AlternateURL,
	)
	if err != nil {
		return false, fmt.Errorf("insertPosting %s: %w", v.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompaniesWithPostingCounts returns every employer with its number of
// postings, ordered by name. Employers without postings report zero.
func (s *Store) CompaniesWithPostingCounts(ctx context.Context) ([]model.CompanyCount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT e.name, COUNT(p.id)
		 FROM employers e
		 LEFT JOIN postings p ON p.employer_id = e.id
		 GROUP BY e.id, e.name
		 ORDER BY e.name, e.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("companiesWithPostingCounts query: %w", err)
	}
	defer rows.Close()

	out := make([]model.CompanyCount, 0)
	for rows.Next() {
		var c model.CompanyCount
		if err := rows.Scan(&c.Name, &c.Postings); err != nil {
			return nil, fmt.Errorf("companiesWithPostingCounts scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// midpointExpr is the salary midpoint in numeric arithmetic, so bounds near
// the int4 limit do not overflow. prefix qualifies the columns, e.g. "p.".
func midpointExpr(prefix string) string {
	return "(" + prefix + "salary_low::numeric + " + prefix + "salary_high) / 2"
}

const postingColumns = `e.name, p.title, p.salary_low, p.salary_high, p.currency, p.url`

// AllPostings returns every posting with its employer name, ordered by
// employer name then title.
func (s *Store) AllPostings(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+postingColumns+`
		 FROM postings p
		 JOIN employers e ON e.id = p.employer_id
		 ORDER BY e.name, p.title`,
	)
	if err != nil {
		return nil, fmt.Errorf("allPostings query: %w", err)
	}
	return scanPostings(rows, "allPostings")
}

// AverageSalary returns the mean salary midpoint over postings that carry
// both bounds. ok is false when no such posting exists.
func (s *Store) AverageSalary(ctx context.Context) (avg float64, ok bool, err error) {
	var v *float64
	err = s.db.QueryRow(ctx,
		`SELECT AVG(`+midpointExpr("")+`)::float8
		 FROM postings
		 WHERE salary_low IS NOT NULL AND salary_high IS NOT NULL`,
	).Scan(&v)
	if err != nil {
		return 0, false, fmt.Errorf("averageSalary: %w", err)
	}
	if v == nil {
		return 0, false, nil
	}
	return *v, true, nil
}

// PostingsAboveAverageSalary returns postings whose midpoint is strictly
// greater than AverageSalary, highest midpoint first. Empty when there is no
// average.
func (s *Store) PostingsAboveAverageSalary(ctx context.Context) ([]model.Posting, error) {
	avg, ok, err := s.AverageSalary(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Posting{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+postingColumns+`
		 FROM postings p
		 JOIN employers e ON e.id = p.employer_id
		 WHERE p.salary_low IS NOT NULL AND p.salary_high IS NOT NULL
		   AND (`+midpointExpr("p.")+`)::float8 > $1
		 ORDER BY `+midpointExpr("p.")+` DESC, e.name, p.title`,
		avg,
	)
	if err != nil {
		return nil, fmt.Errorf("postingsAboveAverageSalary query: %w", err)
	}
	return scanPostings(rows, "postingsAboveAverageSalary")
}

// PostingsMatchingKeyword returns postings whose title contains keyword,
// ignoring case. The keyword is matched literally.
func (s *Store) PostingsMatchingKeyword(ctx context.Context, keyword string) ([]model.Posting, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+postingColumns+`
		 FROM postings p
		 JOIN employers e ON e.id = p.employer_id
		 WHERE strpos(lower(p.title), lower($1)) > 0
		 ORDER BY e.name, p.title`,
		keyword,
	)
	if err != nil {
		return nil, fmt.Errorf("postingsMatchingKeyword query: %w", err)
	}
	return scanPostings(rows, "postingsMatchingKeyword")
}

func scanPostings(rows pgx.Rows, op string) ([]model.Posting, error) {
	defer rows.Close()

	out := make([]model.Posting, 0)
	for rows.Next() {
		var p model.Posting
		if err := rows.Scan(&p.Company, &p.Title, &p.SalaryLow, &p.SalaryHigh, &p.Currency, &p.URL); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}
