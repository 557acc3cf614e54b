package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// validationError answers 422 with the per-field messages of an ozzo
// validation error.
func validationError(c echo.Context, err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": errs})
	}
	return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
}

// internalError logs err and answers a generic 500.
func internalError(c echo.Context, log logrus.FieldLogger, err error) error {
	log.WithError(err).WithField("route", c.Path()).Error("request failed")
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}
