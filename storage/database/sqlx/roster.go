package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/roster"
)

const studentColumns = `id, roll_number, name, branch, year, semester, section, created_at`

type studentRow struct {
	ID         string    `db:"id"`
	RollNumber string    `db:"roll_number"`
	Name       string    `db:"name"`
	Branch     string    `db:"branch"`
	Year       int       `db:"year"`
	Semester   int       `db:"semester"`
	Section    string    `db:"section"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row studentRow) toStudent() roster.Student {
	s := roster.Student(row)
	s.CreatedAt = s.CreatedAt.UTC()
	return s
}

type studentRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) roster.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter roster.Filter) ([]roster.Student, error) {
	q := `SELECT ` + studentColumns + ` FROM student
		WHERE branch = $1 AND year = $2 AND semester = $3 AND ($4 = '' OR section = $4)
		ORDER BY roll_number`
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, filter.Branch, filter.Year, filter.Semester, filter.Section); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) CreateStudents(ctx context.Context, students ...roster.Student) (_ []roster.Student, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :roll_number, :name, :branch, :year, :semester, :section, :created_at)`
	created := make([]roster.Student, 0, len(students))
	for _, s := range students {
		s.ID = uuid.New().String()
		if _, err = tx.NamedExecContext(ctx, q, studentRow(s)); err != nil {
			if isUniqueViolation(err) {
				return nil, errors.Wrap(roster.ErrRollNumberExists, s.RollNumber)
			}
			return nil, errors.Wrap(err, "inserting student")
		}
		created = append(created, s)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing students")
	}
	return created, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}
