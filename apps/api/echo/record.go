package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
	"github.com/trezcool/academia/core/roster"
)

var errEmptyClass = core.NewValidationError(errors.New("no students found for this class"))

// recordApi serves the existing values of a class and the manual and imported saves.
type recordApi struct {
	rosterSvc roster.ServiceInterface
	recordSvc record.ServiceInterface
	importer  *importer.Importer
	previews  importer.PreviewStore
	validate  *validator.Validate
	maxUpload int64
}

func newRecordApi(deps ServerDeps) *recordApi {
	return &recordApi{
		rosterSvc: deps.RosterSvc,
		recordSvc: deps.RecordSvc,
		importer:  deps.Importer,
		previews:  deps.Previews,
		validate:  deps.Validate,
		maxUpload: deps.Conf.Import.MaxUploadSize,
	}
}

func registerRecordAPI(g *echo.Group, mw []echo.MiddlewareFunc, deps ServerDeps) {
	api := newRecordApi(deps)

	rg := g.Group("/records", mw...)
	rg.GET("/:mode", api.query)
	rg.POST("/:mode/save", api.save)
}

// request fetches the roster of scope and the records it already holds for the scope's field.
func (api *recordApi) request(ctx context.Context, mode importer.Mode, scope importer.Scope) (importer.Request, error) {
	students, err := api.rosterSvc.Query(ctx, roster.FilterFromScope(scope))
	if err != nil {
		return importer.Request{}, errors.Wrap(err, "querying students")
	}
	req := importer.Request{Mode: mode, ExamType: scope.ExamType, Roster: roster.Entries(students)}
	if len(students) == 0 {
		req.Existing = make(map[string]importer.Existing)
		return req, nil
	}

	req.Existing, err = api.recordSvc.Existing(ctx, record.QueryFilter{
		Subject:    scope.Subject,
		Field:      mode.Field(scope.ExamType),
		StudentIDs: roster.IDs(students),
	})
	if err != nil {
		return importer.Request{}, errors.Wrap(err, "querying existing records")
	}
	return req, nil
}

func (api *recordApi) query(ctx echo.Context) error {
	mode, scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	req, err := api.request(ctx.Request().Context(), mode, scope)
	if err != nil {
		return err
	}

	values := make([]RecordValue, 0, len(req.Roster))
	for _, entry := range req.Roster {
		val := RecordValue{RosterID: entry.ID, RollNumber: entry.RollNumber, Name: entry.Name, Value: mode.DefaultValue()}
		if prev, ok := req.Existing[entry.ID]; ok {
			val.Value = prev.Value
			val.RecordID = prev.RecordID
		}
		values = append(values, val)
	}
	return ctx.JSON(http.StatusOK, values)
}

func (api *recordApi) save(ctx echo.Context) error {
	mode, err := importer.ParseMode(ctx.Param("mode"))
	if err != nil {
		return err
	}

	var data ManualSaveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualSaveRequest")
	}
	scope, err := data.Validate(mode, api.validate)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	req, err := api.request(rctx, mode, scope)
	if err != nil {
		return err
	}
	if len(req.Roster) == 0 {
		return errEmptyClass
	}

	out, err := api.importer.Manual(data.Values, req)
	if err != nil {
		return err
	}
	res, err := api.recordSvc.Save(rctx, getSession(ctx), record.Batch{
		Subject: scope.Subject,
		Field:   mode.Field(scope.ExamType),
		Records: out.Records,
	})
	if err != nil {
		return errors.Wrap(err, "saving records")
	}
	return ctx.JSON(http.StatusOK, SaveResponse{Result: res, Outcome: out})
}

type (
	RecordValue struct {
		RosterID   string `json:"roster_id"`
		RollNumber string `json:"roll_number"`
		Name       string `json:"name"`
		Value      string `json:"value"`
		RecordID   string `json:"record_id,omitempty"`
	}

	ManualSaveRequest struct {
		Filter   roster.Filter    `json:"filter"`
		Subject  string           `json:"subject"`
		ExamType string           `json:"exam_type"`
		Values   []importer.Entry `json:"values"`
	}

	SaveResponse struct {
		Result  record.SaveResult `json:"result"`
		Outcome importer.Outcome  `json:"outcome"`
	}
)

// Validate checks the request and returns the import scope it targets.
func (sr *ManualSaveRequest) Validate(mode importer.Mode, validate *validator.Validate) (importer.Scope, error) {
	scope := importer.Scope{
		Branch:   sr.Filter.Branch,
		Year:     sr.Filter.Year,
		Semester: sr.Filter.Semester,
		Section:  sr.Filter.Section,
		Subject:  sr.Subject,
		ExamType: sr.ExamType,
	}
	if err := validateScope(mode, &scope, validate); err != nil {
		return importer.Scope{}, err
	}
	if err := validate.Var(sr.Values, "required,dive"); err != nil {
		return importer.Scope{}, err
	}
	return scope, nil
}
