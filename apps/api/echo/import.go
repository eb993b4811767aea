package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
)

var errFileRequired = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})

func registerImportAPI(g *echo.Group, mw []echo.MiddlewareFunc, deps ServerDeps) {
	api := newRecordApi(deps)

	ig := g.Group("/imports", mw...)
	ig.POST("/:mode", api.upload)
	ig.GET("/:mode/:id", api.preview)
	ig.POST("/:mode/:id/save", api.savePreview)
}

// upload imports the spreadsheet of a multipart `file` field and keeps the outcome as a preview.
func (api *recordApi) upload(ctx echo.Context) error {
	r := ctx.Request()
	r.Body = http.MaxBytesReader(ctx.Response(), r.Body, api.maxUpload)

	mode, scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return uploadError(err)
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return errFileRequired
		}
		return uploadError(errors.Wrap(err, "reading uploaded file"))
	}

	req, err := api.request(r.Context(), mode, scope)
	if err != nil {
		return err
	}
	if len(req.Roster) == 0 {
		return errEmptyClass
	}
	rules, err := api.importer.Rules(mode, scope.ExamType)
	if err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	out, err := api.importer.ImportFile(src, fh.Filename, req)
	if err != nil {
		return err
	}

	pv := importer.NewPreview(mode, scope, fh.Filename, rules, out, getSession(ctx).UserID)
	if err = api.previews.SavePreview(r.Context(), pv); err != nil {
		return errors.Wrap(err, "saving import preview")
	}
	return ctx.JSON(http.StatusCreated, pv)
}

// getPreview returns the preview of the `id` path param. Previews are only visible to their uploader
// and to admins.
func (api *recordApi) getPreview(ctx echo.Context) (importer.Preview, error) {
	mode, err := importer.ParseMode(ctx.Param("mode"))
	if err != nil {
		return importer.Preview{}, err
	}
	pv, err := api.previews.GetPreview(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return importer.Preview{}, err
	}
	if sess := getSession(ctx); pv.Mode != mode || !(sess.IsAdmin || sess.UserID == pv.CreatedBy) {
		return importer.Preview{}, importer.ErrPreviewNotFound
	}
	return pv, nil
}

func (api *recordApi) preview(ctx echo.Context) error {
	pv, err := api.getPreview(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pv)
}

// savePreview applies the corrections made in the review table, then persists the preview.
// The preview is discarded once saved.
func (api *recordApi) savePreview(ctx echo.Context) error {
	pv, err := api.getPreview(ctx)
	if err != nil {
		return err
	}

	var data SavePreviewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SavePreviewRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if err = pv.ApplyEdits(data.Values); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	res, err := api.recordSvc.Save(rctx, getSession(ctx), record.Batch{
		Subject: pv.Scope.Subject,
		Field:   pv.Field(),
		Records: pv.Outcome.Records,
	})
	if err != nil {
		return errors.Wrap(err, "saving records")
	}
	if err = api.previews.DeletePreview(rctx, pv.ID); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "deleting import preview"))
	}
	return ctx.JSON(http.StatusOK, SaveResponse{Result: res, Outcome: pv.Outcome})
}

// uploadError maps body size overflows to 413.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errUploadTooLarge
	}
	if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
		if errors.As(herr.Internal, &tooLarge) {
			return errUploadTooLarge
		}
	}
	return err
}

type SavePreviewRequest struct {
	Values []importer.Entry `json:"values" validate:"dive"`
}
