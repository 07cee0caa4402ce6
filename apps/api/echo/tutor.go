package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

func registerTutorAPI(s *Server, g *echo.Group, authed []echo.MiddlewareFunc) {
	mw := append(append([]echo.MiddlewareFunc{}, authed...), roleMiddleware(user.RoleStudent, user.RoleTeacher))
	g.POST("/tutor", s.askTutor, mw...)
}

type TutorRequest struct {
	Text string `json:"text"`
}

func (s *Server) askTutor(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data TutorRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TutorRequest")
	}
	answer, err := s.deps.TutorSvc.Ask(ctx.Request().Context(), usr, data.Text)
	if err != nil {
		return errors.Wrap(err, "asking tutor")
	}
	return ctx.JSON(http.StatusOK, answer)
}
