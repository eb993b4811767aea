package roster

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var ErrRollNumberExists = errors.New("a student with this roll number already exists")

type (
	Repository interface {
		// QueryStudents returns the students matching filter, ordered by roll number.
		QueryStudents(ctx context.Context, filter Filter) ([]Student, error)
		// CreateStudents inserts all students or none; ErrRollNumberExists on duplicates.
		CreateStudents(ctx context.Context, students ...Student) ([]Student, error)
	}

	ServiceInterface interface {
		Query(ctx context.Context, filter Filter) ([]Student, error)
		Create(ctx context.Context, ns NewStudent) (Student, error)
		// Load adds many students at once, e.g. from a roster spreadsheet.
		Load(ctx context.Context, students []NewStudent) ([]Student, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	students, err := svc.Load(ctx, []NewStudent{ns})
	if err != nil {
		return Student{}, err
	}
	return students[0], nil
}

func (svc *service) Load(ctx context.Context, students []NewStudent) ([]Student, error) {
	if len(students) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(students))
	batch := make([]Student, 0, len(students))
	for _, ns := range students {
		ns.Clean()
		key := strings.ToLower(ns.RollNumber)
		if seen[key] {
			return nil, core.NewValidationError(
				ErrRollNumberExists,
				core.FieldError{Field: "roll_number", Error: "duplicate roll number " + ns.RollNumber},
			)
		}
		seen[key] = true
		batch = append(batch, Student{
			RollNumber: ns.RollNumber,
			Name:       ns.Name,
			Branch:     ns.Branch,
			Year:       ns.Year,
			Semester:   ns.Semester,
			Section:    ns.Section,
			CreatedAt:  now,
		})
	}

	created, err := svc.repo.CreateStudents(ctx, batch...)
	if err != nil {
		if errors.Cause(err) == ErrRollNumberExists {
			return nil, core.NewValidationError(err, core.FieldError{Field: "roll_number", Error: ErrRollNumberExists.Error()})
		}
		return nil, errors.Wrap(err, "creating students")
	}
	return created, nil
}
