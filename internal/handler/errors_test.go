package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/handler"
	"github.com/locvowork/tasktracker/internal/service/serviceutils"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		msg    string
	}{
		{"Validation", domain.Validation("title is required"), http.StatusUnprocessableEntity, "validation", "title is required"},
		{"Duplicate", domain.ErrEmailTaken, http.StatusBadRequest, "duplicate", "email already registered"},
		{"Unauthenticated", domain.Unauthenticated("not authenticated"), http.StatusUnauthorized, "unauthenticated", "not authenticated"},
		{"NotFound", domain.NotFound("task not found"), http.StatusNotFound, "not_found", "task not found"},
		{"InternalHidesCause", domain.Internal("select task", errors.New("pq: connection reset")), http.StatusInternalServerError, "internal", "internal server error"},
		{"PlainError", errors.New("unexpected"), http.StatusInternalServerError, "internal", "internal server error"},
		{"EchoNotFound", echo.ErrNotFound, http.StatusNotFound, "not_found", "Not Found"},
		{"EchoMethodNotAllowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "not_found", "Method Not Allowed"},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/tasks/1", nil), rec)
			handler.HTTPErrorHandler(tc.err, c)

			assert.Equal(t, tc.status, rec.Code)
			var body serviceutils.GenericResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.kind, body.Error)
			assert.Equal(t, tc.msg, body.Message)
		})
	}

	t.Run("UnauthenticatedChallenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), rec)
		handler.HTTPErrorHandler(domain.ErrUnauthenticated, c)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	})

	t.Run("CommittedResponseUntouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, c.NoContent(http.StatusNoContent))
		handler.HTTPErrorHandler(domain.ErrNotFound, c)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, handler.StatusFor(domain.KindValidation))
	assert.Equal(t, http.StatusInternalServerError, handler.StatusFor(domain.KindInternal))
}
