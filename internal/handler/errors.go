package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/logger"
	"github.com/locvowork/tasktracker/internal/service/serviceutils"
)

// HTTPErrorHandler renders every error returned by a handler or middleware in
// the response envelope. Internal errors are logged and replaced by a generic
// message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ctx := c.Request().Context()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		if he.Internal != nil {
			logger.DebugLog(ctx, "http error %d: %v", he.Code, he.Internal)
		}
		if he.Code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		writeError(c, he.Code, msg, kindForStatus(he.Code))
		return
	}

	kind := domain.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch kind {
	case domain.KindUnauthenticated:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	case domain.KindInternal:
		logger.ErrorLog(ctx, "%s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal server error"
	}
	writeError(c, status, msg, kind.String())
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindDuplicate:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindValidation.String()
	case http.StatusUnauthorized:
		return domain.KindUnauthenticated.String()
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return domain.KindNotFound.String()
	}
	if code >= http.StatusInternalServerError {
		return domain.KindInternal.String()
	}
	return http.StatusText(code)
}

func writeError(c echo.Context, code int, msg, kind string) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = serviceutils.ResponseError(c, code, msg, kind)
	}
	if err != nil {
		logger.ErrorLog(c.Request().Context(), "write error response: %v", err)
	}
}
