package roster

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

type Student struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"roll_number"`
	Name       string    `json:"name"`
	Branch     string    `json:"branch"`
	Year       int       `json:"year"`
	Semester   int       `json:"semester"`
	Section    string    `json:"section"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// Entries returns the students as import roster entries, keeping their order.
func Entries(students []Student) []importer.RosterEntry {
	entries := make([]importer.RosterEntry, 0, len(students))
	for _, s := range students {
		entries = append(entries, importer.RosterEntry{ID: s.ID, RollNumber: s.RollNumber, Name: s.Name})
	}
	return entries
}

// IDs returns the IDs of students.
func IDs(students []Student) []string {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}

// Filter selects the students of a class. An empty Section selects every section.
type Filter struct {
	Branch   string `json:"branch" query:"branch" validate:"required"`
	Year     int    `json:"year" query:"year" validate:"required,min=1,max=6"`
	Semester int    `json:"semester" query:"semester" validate:"required,min=1,max=2"`
	Section  string `json:"section" query:"section"`
}

func (f *Filter) Clean() {
	f.Branch = core.CleanString(f.Branch)
	f.Section = core.CleanString(f.Section)
}

func (f *Filter) Validate(validate *validator.Validate) error {
	f.Clean()
	return validate.Struct(f)
}

// FilterFromScope returns the roster filter of an import scope.
func FilterFromScope(scope importer.Scope) Filter {
	return Filter{Branch: scope.Branch, Year: scope.Year, Semester: scope.Semester, Section: scope.Section}
}

// NewStudent contains information needed to add a Student to the roster.
type NewStudent struct {
	RollNumber string `json:"roll_number" validate:"required,notblank"`
	Name       string `json:"name" validate:"required,notblank"`
	Branch     string `json:"branch" validate:"required"`
	Year       int    `json:"year" validate:"required,min=1,max=6"`
	Semester   int    `json:"semester" validate:"required,min=1,max=2"`
	Section    string `json:"section"`
}

func (ns *NewStudent) Clean() {
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.Name = core.CleanString(ns.Name)
	ns.Branch = core.CleanString(ns.Branch)
	ns.Section = core.CleanString(ns.Section)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}
