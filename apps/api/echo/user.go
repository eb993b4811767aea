package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const contextAccountKey = "account"

var (
	errAccountNotInCtx   = errors.New("account not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
)

// accountApi serves the faculty and admin accounts that upload and correct records.
type accountApi struct {
	auth     *authenticator
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := accountApi{auth: auth, svc: svc, validate: validate}

	ug := g.Group("/users")

	// TODO: rate limit `/login`, `/elevate`, `/password-reset` & `/password-reset-confirm`
	ug.POST("/login", api.login)
	ug.POST("/password-reset", api.requestPasswordReset)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/elevate", api.elevate)

	// account management is left to admins
	ag.POST("/register", api.register, adminMiddleware())
	ag.GET("", api.list, adminMiddleware())
	ag.DELETE("", api.removeMany, adminMiddleware())
	ag.GET("/roles", api.roles, adminMiddleware())

	pg := ag.Group("/:id", ownAccountOrAdminMiddleware(api.svc))
	pg.GET("", api.profile)
	pg.PUT("", api.editProfile)
	pg.DELETE("", api.remove, adminMiddleware())
}

// checkRoleCeiling refuses roles ranking above the best role of the admin granting them.
func checkRoleCeiling(granter user.User, roles []string) error {
	if user.MaxRolePriority(roles) > user.MaxRolePriority(granter.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}
	return nil
}

func accountFromContext(ctx echo.Context) (user.User, error) {
	acc, ok := ctx.Get(contextAccountKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errAccountNotInCtx, "reading account from context")
	}
	return acc, nil
}

// register opens an account for a faculty member or another admin.
func (api *accountApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	admin, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = checkRoleCeiling(admin, data.Roles); err != nil {
		return err
	}

	acc, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := api.auth.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// elevate takes the credentials of an admin standing by the faculty member. The returned token lets
// the session overwrite saved attendance and marks until it expires.
func (api *accountApi) elevate(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	faculty, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	token, err := api.auth.elevate(faculty.ID, data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, ElevationResponse{
		Token:     token,
		Header:    elevationHeader,
		ExpiresIn: int(api.auth.conf.Server.ElevationExpirationDelta.Seconds()),
	})
}

// requestPasswordReset mails a reset link. The answer is the same whether the address is known or not.
func (api *accountApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(data.Email); err != nil && errors.Cause(err) != user.ErrNotFound {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If this address belongs to an active faculty or admin account, a password reset link is on its way.",
	})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your password has been changed."})
}

// list returns the accounts selected by the user.QueryFilter params, ordered by `ordering`.
func (api *accountApi) list(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accounts, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accounts == nil {
		accounts = []user.User{}
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (api *accountApi) profile(ctx echo.Context) error {
	acc, err := accountFromContext(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

// editProfile lets faculty change their name and password. Roles, activation, username and email
// are managed by admins.
func (api *accountApi) editProfile(ctx echo.Context) error {
	acc, err := accountFromContext(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	editor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	adminOnly := data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != ""
	if adminOnly && !editor.IsAdmin() {
		return errHttpForbidden
	}

	if err = data.Validate(acc, api.validate, api.svc); err != nil {
		return err
	}
	if err = checkRoleCeiling(editor, data.Roles); err != nil {
		return err
	}

	acc, err = api.svc.Update(acc.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

// remove deletes an account. Admins cannot remove themselves nor anyone ranking above them.
func (api *accountApi) remove(ctx echo.Context) error {
	acc, err := accountFromContext(ctx)
	if err != nil {
		return err
	}

	admin, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if acc.ID == admin.ID || user.MaxRolePriority(acc.Roles) > user.MaxRolePriority(admin.Roles) {
		return errHttpForbidden
	}

	if err = api.svc.Delete(acc.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// removeMany deletes the accounts of every `id` query param, unless one of them is the admin's own.
func (api *accountApi) removeMany(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	admin, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range query.IDs {
		if id == admin.ID {
			return errHttpForbidden
		}
	}

	if err = api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) roles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// ownAccountOrAdminMiddleware loads the account of the `id` path param. Faculty only see their own;
// other accounts are reported missing.
func ownAccountOrAdminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			viewer, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			id := ctx.Param("id")
			if id != viewer.ID && !viewer.IsAdmin() {
				return errHttpNotFound
			}

			acc, err := svc.GetByID(id)
			switch {
			case errors.Cause(err) == user.ErrNotFound:
				return errHttpNotFound
			case err != nil:
				return errors.Wrap(err, "finding account by ID")
			}
			ctx.Set(contextAccountKey, acc)
			return next(ctx)
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"` // or email
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	// ElevationResponse tells the client which header carries the elevation token, and for how long.
	ElevationResponse struct {
		Token     string `json:"token"`
		Header    string `json:"header"`
		ExpiresIn int    `json:"expires_in"` // seconds
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
