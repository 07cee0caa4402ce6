package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/user"
)

type userApi struct {
	s *Server
}

func registerUserAPI(s *Server, g *echo.Group, authed []echo.MiddlewareFunc) {
	api := userApi{s: s}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.GET("/me", api.me)
	ag.POST("/logout", api.logout)

	adm := ag.Group("", roleMiddleware(user.RoleAdmin))
	adm.GET("", api.query)
	adm.POST("", api.create)
	adm.GET("/roles", api.queryRoles)
	adm.PUT("/:id/toggle-active", api.toggleActive)
	adm.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.s); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, err := api.s.deps.UserSvc.Authenticate(rctx, data.Username, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return core.NewValidationError(user.ErrInvalidCredentials)
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.s.GenerateToken(api.s.GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	if usr.IsStudent() && api.s.deps.ActivitySvc != nil {
		if _, err = api.s.deps.ActivitySvc.Record(rctx, usr.ID, activity.TypeLogin, ""); err != nil {
			api.s.deps.Logger.Error("recording login activity", err, usr)
		}
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

// logout only records the activity; tokens stay valid until they expire.
func (api *userApi) logout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.IsStudent() && api.s.deps.ActivitySvc != nil {
		if _, err = api.s.deps.ActivitySvc.Record(ctx.Request().Context(), usr.ID, activity.TypeLogout, ""); err != nil {
			return errors.Wrap(err, "recording logout activity")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   ctx.QueryParam("role"),
	}
	if v := ctx.QueryParam("is_active"); v != "" {
		isActive, err := strconv.ParseBool(v)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "is_active", Error: "must be true or false"})
		}
		filter.IsActive = &isActive
	}

	users, err := api.s.deps.UserSvc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.s.deps.Validate, api.s.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.s.deps.UserSvc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) toggleActive(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	// admins cannot lock themselves out
	if ctx.Param("id") == ctxUsr.ID {
		return errHttpForbidden
	}

	usr, err := api.s.deps.UserSvc.ToggleActive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	// Say No to Suicide! ctxUser cannot delete themselves
	if ctx.Param("id") == ctxUsr.ID {
		return errHttpForbidden
	}

	rctx := ctx.Request().Context()
	if _, err = api.s.deps.UserSvc.GetByID(rctx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = api.s.deps.UserSvc.Delete(rctx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
)

func (lr *LoginRequest) Validate(s *Server) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return s.deps.Validate.Struct(lr)
}
