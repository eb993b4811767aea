package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/academia/core/importer"
)

// Record is the value of one field (attendance or an exam type) of a student for a subject.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Subject    string    `json:"subject"`
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	RecordedBy string    `json:"recorded_by"` // user ID
	CreatedAt  time.Time `json:"created_at"`  // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC
}

// QueryFilter selects the records of a subject field, optionally restricted to some students.
type QueryFilter struct {
	Subject    string
	Field      string
	StudentIDs []string
}

// Batch is a set of reconciled records to persist for one subject field.
type Batch struct {
	Subject string
	Field   string
	Records []importer.ReconciledRecord
}

// SaveResult counts what a save did.
type SaveResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// PrivilegeError refuses a batch that updates existing records without elevated privilege.
type PrivilegeError struct {
	RollNumbers []string // of the records that would be updated
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf(
		"elevated privilege is required to change %d existing record(s): %s",
		len(e.RollNumbers), strings.Join(e.RollNumbers, ", "),
	)
}
