package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/middleware"
)

const maxAvatarSize = 5 << 20

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return middleware.Unauthorized(c)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateAvatar stores the uploaded multipart "file" as the user's avatar.
func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return middleware.Unauthorized(c)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "file is required")
	}
	if fh.Size > maxAvatarSize {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "file too large")
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return errorJSON(c, http.StatusUnsupportedMediaType, "file must be an image")
	}
	f, err := fh.Open()
	if err != nil {
		return internalError(c, h.log, err)
	}
	defer f.Close()

	updated, err := h.svc.UpdateAvatar(c.Request().Context(), u, auth.AvatarUpload{
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	})
	switch {
	case errors.Is(err, auth.ErrStorageDisabled):
		return errorJSON(c, http.StatusServiceUnavailable, "avatar storage is not configured")
	case errors.Is(err, auth.ErrUnauthorized):
		return middleware.Unauthorized(c)
	case err != nil:
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, updated)
}
