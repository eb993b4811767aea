package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrPreviewNotFound = errors.New("import preview not found or expired")

// Scope is the class and column an import targets.
type Scope struct {
	Branch   string `json:"branch" form:"branch" query:"branch" validate:"required"`
	Year     int    `json:"year" form:"year" query:"year" validate:"required,min=1,max=6"`
	Semester int    `json:"semester" form:"semester" query:"semester" validate:"required,min=1,max=2"`
	Section  string `json:"section" form:"section" query:"section"`
	Subject  string `json:"subject" form:"subject" query:"subject" validate:"required"`
	ExamType string `json:"exam_type,omitempty" form:"exam_type" query:"exam_type" validate:"omitempty,examtype"`
}

// Preview is an import outcome kept aside until the uploader reviews and saves it.
type Preview struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Scope     Scope     `json:"scope"`
	Filename  string    `json:"filename"`
	MaxMarks  float64   `json:"max_marks,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// PreviewStore keeps previews between upload and save.
type PreviewStore interface {
	SavePreview(ctx context.Context, p Preview) error
	// GetPreview returns ErrPreviewNotFound when id is unknown or expired.
	GetPreview(ctx context.Context, id string) (Preview, error)
	DeletePreview(ctx context.Context, id string) error
}

func NewPreview(mode Mode, scope Scope, filename string, rules Rules, out Outcome, createdBy string) Preview {
	return Preview{
		ID:        uuid.New().String(),
		Mode:      mode,
		Scope:     scope,
		Filename:  filename,
		MaxMarks:  rules.MaxMarks,
		Outcome:   out,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}

// Field returns the record field the preview writes.
func (p Preview) Field() string {
	return p.Mode.Field(p.Scope.ExamType)
}

// ApplyEdits overrides reconciled values with values corrected in the review table.
// Edited values are checked with the preview's rules; nothing is changed if any is invalid.
func (p *Preview) ApplyEdits(edits []Entry) error {
	rules := Rules{Mode: p.Mode, MaxMarks: p.MaxMarks}
	idx := make(map[string]int, len(p.Outcome.Records))
	for i, rec := range p.Outcome.Records {
		idx[rec.RosterID] = i
	}

	values := make(map[int]string, len(edits))
	var errs []string
	for _, edit := range edits {
		i, ok := idx[edit.RosterID]
		if !ok {
			errs = append(errs, fmt.Sprintf("roster entry %s is not part of this import", edit.RosterID))
			continue
		}
		v := ParseValue(edit.Value)
		if problem := rules.CheckValue(v); problem != "" {
			errs = append(errs, fmt.Sprintf("roll %s: %s", p.Outcome.Records[i].RollNumber, problem))
			continue
		}
		values[i] = v.String()
		if values[i] == "" {
			values[i] = p.Mode.DefaultValue()
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs, Warnings: make([]string, 0)}
	}

	for i, value := range values {
		p.Outcome.Records[i].Value = value
		p.Outcome.Records[i].Matched = true
	}
	return nil
}
