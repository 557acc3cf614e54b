package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

// AuthService is the account logic behind the auth and user endpoints.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	ConfirmEmail(ctx context.Context, token string) (bool, error)
	RequestEmail(ctx context.Context, email string) (bool, error)
	UpdateAvatar(ctx context.Context, u *model.User, img auth.AvatarUpload) (*model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	svc AuthService
	log logrus.FieldLogger
}

func NewAuthHandler(svc AuthService, log logrus.FieldLogger) *AuthHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthHandler{svc: svc, log: log}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r signupReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(5, 16)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 10)),
	)
}

// loginReq accepts the OAuth2 password form: the email goes in username.
type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type requestEmailReq struct {
	Email string `json:"email" form:"email"`
}

func (r requestEmailReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// Signup creates an account and sends the confirmation email.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = auth.NormalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}

	u, err := h.svc.Signup(c.Request().Context(), auth.SignupInput(req))
	switch {
	case errors.Is(err, auth.ErrEmailExists), errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusConflict, "Account already exists")
	case err != nil:
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Login exchanges email and password for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	email := req.Username
	if email == "" {
		email = req.Email
	}
	if email == "" || req.Password == "" {
		return errorJSON(c, http.StatusUnprocessableEntity, "username and password required")
	}

	pair, err := h.svc.Login(c.Request().Context(), email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, repository.ErrUserNotFound):
		return errorJSON(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return errorJSON(c, http.StatusUnauthorized, "Email not confirmed")
	case err != nil:
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// RefreshToken rotates the refresh token presented as the bearer credential.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	pair, err := h.svc.Refresh(c.Request().Context(), token)
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, repository.ErrUserNotFound):
		return middleware.Unauthorized(c)
	case err != nil:
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// ConfirmedEmail verifies the token from a confirmation link.
func (h *AuthHandler) ConfirmedEmail(c echo.Context) error {
	already, err := h.svc.ConfirmEmail(c.Request().Context(), c.Param("token"))
	switch {
	case errors.Is(err, auth.ErrEmailTokenInvalid):
		return errorJSON(c, http.StatusUnprocessableEntity, "Invalid token for email verification")
	case errors.Is(err, auth.ErrWrongScope):
		return errorJSON(c, http.StatusUnauthorized, "Invalid scope for token")
	case errors.Is(err, auth.ErrVerificationFailed):
		return errorJSON(c, http.StatusBadRequest, "Verification error")
	case err != nil:
		return internalError(c, h.log, err)
	case already:
		return c.JSON(http.StatusOK, echo.Map{"message": "Your email is already confirmed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email confirmed"})
}

// RequestEmail re-sends the confirmation email. The answer is the same
// whether or not the address belongs to an account.
func (h *AuthHandler) RequestEmail(c echo.Context) error {
	var req requestEmailReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}
	already, err := h.svc.RequestEmail(c.Request().Context(), req.Email)
	if err != nil {
		return internalError(c, h.log, err)
	}
	if already {
		h.log.WithField("email", req.Email).Debug("confirmation requested for confirmed account")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Check your email for confirmation."})
}
