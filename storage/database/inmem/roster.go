package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/roster"
)

type studentRepository struct {
	db *studentTable
}

var _ roster.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) roster.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter roster.Filter) ([]roster.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]roster.Student, 0)
	for _, s := range repo.db.table {
		if s.Branch == filter.Branch && s.Year == filter.Year && s.Semester == filter.Semester &&
			(filter.Section == "" || s.Section == filter.Section) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })
	return students, nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, students ...roster.Student) ([]roster.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	taken := make(map[string]bool, len(repo.db.table)+len(students))
	for _, s := range repo.db.table {
		taken[strings.ToLower(s.RollNumber)] = true
	}
	for _, s := range students {
		key := strings.ToLower(s.RollNumber)
		if taken[key] {
			return nil, roster.ErrRollNumberExists
		}
		taken[key] = true
	}

	created := make([]roster.Student, 0, len(students))
	for _, s := range students {
		s := s
		s.ID = uuid.New().String()
		repo.db.table[s.ID] = &s
		created = append(created, s)
	}
	return created, nil
}
