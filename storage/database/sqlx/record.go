package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/record"
)

const recordColumns = `id, student_id, subject, field, value, recorded_by, created_at, updated_at`

type recordRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	Subject    string      `db:"subject"`
	Field      string      `db:"field"`
	Value      string      `db:"value"`
	RecordedBy null.String `db:"recorded_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func newRecordRow(rec record.Record) recordRow {
	return recordRow{
		ID:         rec.ID,
		StudentID:  rec.StudentID,
		Subject:    rec.Subject,
		Field:      rec.Field,
		Value:      rec.Value,
		RecordedBy: null.NewString(rec.RecordedBy, rec.RecordedBy != ""),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (row recordRow) toRecord() record.Record {
	return record.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		Subject:    row.Subject,
		Field:      row.Field,
		Value:      row.Value,
		RecordedBy: row.RecordedBy.String,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type recordRepository struct {
	db *sqlx.DB
}

var _ record.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *sqlx.DB) record.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) QueryRecords(ctx context.Context, filter record.QueryFilter) ([]record.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM record WHERE subject = $1 AND field = $2`
	args := []interface{}{filter.Subject, filter.Field}
	if len(filter.StudentIDs) > 0 {
		q += ` AND student_id = ANY($3::uuid[])`
		args = append(args, pq.Array(filter.StudentIDs))
	}

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	records := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	rec.ID = uuid.New().String()
	q := `INSERT INTO record (` + recordColumns + `)
		VALUES (:id, :student_id, :subject, :field, :value, :recorded_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newRecordRow(rec)); err != nil {
		if isUniqueViolation(err) {
			return record.Record{}, record.ErrRecordExists
		}
		return record.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo *recordRepository) UpdateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	q := `UPDATE record SET value = $1, recorded_by = $2, updated_at = $3 WHERE id = $4
		RETURNING ` + recordColumns
	var row recordRow
	err := repo.db.GetContext(ctx, &row, q, rec.Value, null.NewString(rec.RecordedBy, rec.RecordedBy != ""), rec.UpdatedAt, rec.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return record.Record{}, record.ErrNotFound
		}
		return record.Record{}, errors.Wrap(err, "updating record")
	}
	return row.toRecord(), nil
}
