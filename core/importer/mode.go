package importer

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnknownExamType = errors.New("unknown exam type")
)

// Mode is the data-entry workflow an import feeds.
type Mode string

const (
	ModeAttendance Mode = "attendance"
	ModeMarks      Mode = "marks"

	// FieldAttendance is the record field written by attendance imports.
	// Marks imports write the exam type key instead.
	FieldAttendance = "attendance"
)

var Modes = []Mode{ModeAttendance, ModeMarks}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAttendance, ModeMarks:
		return m, nil
	}
	return "", ErrUnknownMode
}

// DefaultValue is the value a record carries when nothing was provided for it.
func (m Mode) DefaultValue() string {
	if m == ModeAttendance {
		return "0"
	}
	return ""
}

// Field returns the record field this mode writes for examType.
func (m Mode) Field(examType string) string {
	if m == ModeAttendance {
		return FieldAttendance
	}
	return examType
}

// ExamType is one marks column a faculty member can fill.
type ExamType struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	MaxMarks float64  `json:"max_marks"`
	Synonyms []string `json:"-"`
}

var ExamTypes = []ExamType{
	{Key: "mid1", Name: "Mid Term 1", MaxMarks: 20, Synonyms: []string{"mid1", "mid-1", "mid 1", "midterm 1", "midterm1"}},
	{Key: "mid2", Name: "Mid Term 2", MaxMarks: 20, Synonyms: []string{"mid2", "mid-2", "mid 2", "mid-ii", "mid ii", "midterm 2", "midterm2"}},
	{Key: "assignment", Name: "Assignment", MaxMarks: 10, Synonyms: []string{"assignment", "assign", "asgn"}},
	{Key: "quiz", Name: "Quiz", MaxMarks: 10, Synonyms: []string{"quiz"}},
	{Key: "internal", Name: "Internal", MaxMarks: 30, Synonyms: []string{"internal"}},
	{Key: "external", Name: "External", MaxMarks: 70, Synonyms: []string{"external", "semester end", "end sem"}},
}

func LookupExamType(key string) (ExamType, error) {
	for _, et := range ExamTypes {
		if et.Key == key {
			return et, nil
		}
	}
	return ExamType{}, ErrUnknownExamType
}

// column synonyms, evaluated in declaration order
var (
	rollSynonyms       = []synonym{{term: "roll"}, {term: "rno"}, {term: "reg"}}
	rollMarksSynonyms  = append(append([]synonym{}, rollSynonyms...), synonym{term: "id", wholeWord: true})
	nameSynonyms       = []synonym{{term: "name"}, {term: "student"}}
	attendanceSynonyms = []synonym{{term: "attend"}, {term: "class"}, {term: "total"}}
	genericMarks       = []synonym{{term: "marks"}, {term: "score"}, {term: "grade"}, {term: "result"}}
)

// Synonyms returns the ordered header synonym sets of mode. examType is only used in marks mode.
func Synonyms(mode Mode, examType ExamType) HeaderSynonyms {
	if mode == ModeAttendance {
		return HeaderSynonyms{
			Roll:  rollSynonyms,
			Name:  nameSynonyms,
			Value: attendanceSynonyms,
		}
	}

	value := make([]synonym, 0, len(examType.Synonyms))
	for _, term := range examType.Synonyms {
		value = append(value, synonym{term: term})
	}
	return HeaderSynonyms{
		Roll:          rollMarksSynonyms,
		Name:          nameSynonyms,
		Value:         value,
		ValueFallback: genericMarks,
	}
}
