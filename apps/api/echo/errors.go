package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/tutor"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errStorageUnavailable   = echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable, try again later")
)

// sentinelHTTPErrors maps domain errors to their HTTP response.
var sentinelHTTPErrors = []struct {
	err  error
	herr *echo.HTTPError
}{
	{user.ErrNotFound, echo.NewHTTPError(http.StatusNotFound, "user not found")},
	{user.ErrAccountDeactivated, errAccountDeactivated},
	{user.ErrInvalidCredentials, errAuthenticationFailed},
	{chat.ErrConversationNotFound, echo.NewHTTPError(http.StatusNotFound, chat.ErrConversationNotFound.Error())},
	{chat.ErrNotParticipant, echo.NewHTTPError(http.StatusForbidden, chat.ErrNotParticipant.Error())},
	{chat.ErrUserInactive, echo.NewHTTPError(http.StatusForbidden, chat.ErrUserInactive.Error())},
	{tutor.ErrRateLimited, echo.NewHTTPError(http.StatusTooManyRequests, tutor.ErrRateLimited.Error())},
	{tutor.ErrCheckerUnavailable, echo.NewHTTPError(http.StatusServiceUnavailable, tutor.ErrCheckerUnavailable.Error())},
}

// sentinelHTTPError compares with == so causes of uncomparable types (validator.ValidationErrors) never match.
func sentinelHTTPError(cause error) (*echo.HTTPError, bool) {
	for _, s := range sentinelHTTPErrors {
		if cause == s.err {
			return s.herr, true
		}
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := sentinelHTTPError(cause); ok {
			cause = herr
		} else if core.IsStorageUnavailable(err) {
			logger.Error("storage unavailable", err, contextUserOrEmpty(ctx))
			cause = errStorageUnavailable
		}

		switch origErr := cause.(type) {
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
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextUserOrEmpty(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
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
