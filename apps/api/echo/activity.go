package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

func registerActivityAPI(s *Server, g *echo.Group, authed []echo.MiddlewareFunc) {
	mw := append(append([]echo.MiddlewareFunc{}, authed...), roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	g.GET("/activities", s.queryActivities, mw...)
}

func (s *Server) queryActivities(ctx echo.Context) error {
	acts, err := s.deps.ActivitySvc.List(ctx.Request().Context(), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "listing activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}
