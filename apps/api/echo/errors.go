package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errElevationRefused     = echo.NewHTTPError(http.StatusForbidden, "only an admin can authorize changes")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errUploadTooLarge       = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "uploaded file is too large")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch errors.Cause(err) {
		case importer.ErrUnsupportedFormat:
			code = http.StatusUnprocessableEntity
			message = errors.Cause(err).Error()
		case importer.ErrUnknownExamType:
			code = http.StatusBadRequest
			message = echo.Map{"exam_type": errors.Cause(err).Error()}
		case importer.ErrUnknownMode, importer.ErrPreviewNotFound:
			code = http.StatusNotFound
			message = errors.Cause(err).Error()
		case record.ErrUnauthorized:
			code = http.StatusUnauthorized
			message = errors.Cause(err).Error()
		case record.ErrRecordExists:
			code = http.StatusConflict
			message = errors.Cause(err).Error()
		}

		if code == 0 {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			case *importer.ValidationError:
				code = http.StatusUnprocessableEntity
				message = echo.Map{"error": origErr.Error(), "errors": origErr.Errors, "warnings": origErr.Warnings}
			case *importer.NoSheetsError, *importer.HeaderNotFoundError, *importer.NoDataError:
				code = http.StatusUnprocessableEntity
				message = origErr.Error()
			case *record.PrivilegeError:
				code = http.StatusForbidden
				message = echo.Map{
					"error":                  origErr.Error(),
					"authorization_required": true,
					"roll_numbers":           origErr.RollNumbers,
				}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logger.Error(msg, errors.Wrap(err, msg), getSession(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}

				if ctx.Echo().Debug {
					message = err.Error()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
