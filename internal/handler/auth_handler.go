package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/middleware"
	"github.com/locvowork/tasktracker/internal/service"
	"github.com/locvowork/tasktracker/internal/service/serviceutils"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) RegisterHandler(c echo.Context) error {
	var in domain.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "User registered successfully", user)
}

func (h *AuthHandler) LoginHandler(c echo.Context) error {
	var in domain.LoginInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	token, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Login successful", token)
}

func (h *AuthHandler) MeHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", user)
}

func currentUser(c echo.Context) (domain.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return domain.User{}, domain.Unauthenticated("not authenticated")
	}
	return user, nil
}

// bindJSON decodes the request body. Malformed bodies are validation errors.
func bindJSON(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return domain.Validation("invalid request body")
	}
	return nil
}
