package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

var (
	orderingParam = "ordering"

	examTypeRequiredText = "this field is required for marks"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		ord.Orderings = append(ord.Orderings, core.DBOrdering{
			Field:     strings.TrimPrefix(field, "-"),
			Ascending: !descending,
		})
	}
}

// bindScope binds the `mode` path param and the import scope carried by the query or the form.
func bindScope(ctx echo.Context, validate *validator.Validate) (importer.Mode, importer.Scope, error) {
	mode, err := importer.ParseMode(ctx.Param("mode"))
	if err != nil {
		return "", importer.Scope{}, err
	}

	var scope importer.Scope
	if err = ctx.Bind(&scope); err != nil {
		return "", importer.Scope{}, errors.Wrap(err, "binding to Scope")
	}
	if err = validateScope(mode, &scope, validate); err != nil {
		return "", importer.Scope{}, err
	}
	return mode, scope, nil
}

func validateScope(mode importer.Mode, scope *importer.Scope, validate *validator.Validate) error {
	scope.Branch = core.CleanString(scope.Branch)
	scope.Section = core.CleanString(scope.Section)
	scope.Subject = core.CleanString(scope.Subject)
	scope.ExamType = core.CleanString(scope.ExamType, true /* lower */)

	if err := validate.Struct(scope); err != nil {
		return err
	}
	switch {
	case mode == importer.ModeAttendance:
		scope.ExamType = ""
	case scope.ExamType == "":
		return core.NewValidationError(nil, core.FieldError{Field: "exam_type", Error: examTypeRequiredText})
	}
	return nil
}
