package serviceutils

import (
	"github.com/labstack/echo/v4"
)

// GenericResponse is the JSON envelope for every API response.
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ResponseSuccess(c echo.Context, code int, msg string, data interface{}) error {
	return c.JSON(code, GenericResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// ResponseError writes a failure envelope. kind is the machine-readable error
// class; msg is safe to show to clients.
func ResponseError(c echo.Context, code int, msg string, kind string) error {
	return c.JSON(code, GenericResponse{
		Success: false,
		Message: msg,
		Error:   kind,
	})
}
