package importer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Import errors are terminal for an import attempt: nothing is reconciled and the file must be
// corrected and uploaded again.
type (
	NoSheetsError struct{}

	HeaderNotFoundError struct {
		ScannedRows int
	}

	NoDataError struct {
		HeaderRow int // 1-based
	}

	ValidationError struct {
		Errors   []string
		Warnings []string
	}
)

var ErrUnsupportedFormat = errors.New("unsupported file format: upload a .xlsx or .csv file")

func (*NoSheetsError) Error() string { return "the workbook does not contain any sheet" }

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("no header row with roll number and value columns found in the first %d rows", e.ScannedRows)
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data rows found after the header on row %d", e.HeaderRow)
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("%d rows are invalid: %s", len(e.Errors), strings.Join(e.Errors, "; "))
}

// IsImportError reports whether err (or its cause) is one of the terminal import errors.
func IsImportError(err error) bool {
	switch errors.Cause(err).(type) {
	case *NoSheetsError, *HeaderNotFoundError, *NoDataError, *ValidationError:
		return true
	}
	return errors.Cause(err) == ErrUnsupportedFormat
}
