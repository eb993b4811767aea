package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/record"
)

type recordRepository struct {
	db *recordTable
}

var _ record.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *DB) record.Repository {
	return &recordRepository{db: db.record}
}

func (repo *recordRepository) QueryRecords(_ context.Context, filter record.QueryFilter) ([]record.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students map[string]bool
	if len(filter.StudentIDs) > 0 {
		students = make(map[string]bool, len(filter.StudentIDs))
		for _, id := range filter.StudentIDs {
			students[id] = true
		}
	}

	records := make([]record.Record, 0)
	for _, rec := range repo.db.table {
		if rec.Subject != filter.Subject || rec.Field != filter.Field {
			continue
		}
		if students != nil && !students[rec.StudentID] {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.table {
		if r.StudentID == rec.StudentID && r.Subject == rec.Subject && r.Field == rec.Field {
			return record.Record{}, record.ErrRecordExists
		}
	}
	rec.ID = uuid.New().String()
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *recordRepository) UpdateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[rec.ID]
	if !ok {
		return record.Record{}, record.ErrNotFound
	}
	orig.Value = rec.Value
	orig.RecordedBy = rec.RecordedBy
	orig.UpdatedAt = rec.UpdatedAt
	return *orig, nil
}
