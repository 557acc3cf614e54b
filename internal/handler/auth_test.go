package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

type stubAuth struct {
	signupErr    error
	loginErr     error
	refreshErr   error
	confirmErr   error
	confirmed    bool
	avatarErr    error
	gotEmail     string
	gotPassword  string
	gotRefresh   string
	gotSignup    auth.SignupInput
	avatarBody   string
	avatarCType  string
	requestCalls int
}

var testPair = auth.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}

func (s *stubAuth) Signup(_ context.Context, in auth.SignupInput) (*model.User, error) {
	s.gotSignup = in
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return &model.User{ID: 1, Username: in.Username, Email: in.Email, PasswordHash: "secret-hash"}, nil
}

func (s *stubAuth) Login(_ context.Context, email, password string) (auth.TokenPair, error) {
	s.gotEmail, s.gotPassword = email, password
	return testPair, s.loginErr
}

func (s *stubAuth) Refresh(_ context.Context, token string) (auth.TokenPair, error) {
	s.gotRefresh = token
	if s.refreshErr != nil {
		return auth.TokenPair{}, s.refreshErr
	}
	return testPair, nil
}

func (s *stubAuth) ConfirmEmail(context.Context, string) (bool, error) {
	return s.confirmed, s.confirmErr
}

func (s *stubAuth) RequestEmail(_ context.Context, email string) (bool, error) {
	s.requestCalls++
	s.gotEmail = email
	return s.confirmed, nil
}

func (s *stubAuth) UpdateAvatar(_ context.Context, u *model.User, img auth.AvatarUpload) (*model.User, error) {
	if s.avatarErr != nil {
		return nil, s.avatarErr
	}
	b, _ := io.ReadAll(img.Body)
	s.avatarBody, s.avatarCType = string(b), img.ContentType
	cp := *u
	cp.Avatar = "https://cdn.test/avatars/7"
	return &cp, nil
}

type staticResolver struct{ user *model.User }

func (r staticResolver) Resolve(_ context.Context, token string) (*model.User, error) {
	if token == "access" {
		return r.user, nil
	}
	return nil, auth.ErrUnauthorized
}

func newAuthServer(svc *stubAuth) *echo.Echo {
	logger, _ := test.NewNullLogger()
	h := NewAuthHandler(svc, logger)
	e := echo.New()
	g := e.Group("/api/auth")
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.GET("/refresh_token", h.RefreshToken)
	g.GET("/confirmed_email/:token", h.ConfirmedEmail)
	g.POST("/request_email", h.RequestEmail)

	u := e.Group("/api/users", middleware.JWTAuth(staticResolver{&model.User{ID: 7, Email: "pp@meta.ua"}}))
	u.GET("/me", h.Me)
	u.PATCH("/avatar", h.UpdateAvatar)
	return e
}

func TestSignup(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	rec := do(e, http.MethodPost, "/api/auth/signup", `{"username":"petro","email":"PP@meta.ua ","password":"qwerty"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "pp@meta.ua", svc.gotSignup.Email)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	rec = do(e, http.MethodPost, "/api/auth/signup", `{"username":"pe","email":"pp@meta.ua","password":"qwerty"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username"`)

	rec = do(e, http.MethodPost, "/api/auth/signup", `{"username":"petro","email":"pp@meta.ua","password":"waytoolongpassword"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.signupErr = auth.ErrEmailExists
	rec = do(e, http.MethodPost, "/api/auth/signup", `{"username":"petro","email":"pp@meta.ua","password":"qwerty"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Account already exists"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	form := url.Values{"username": {"pp@meta.ua"}, "password": {"qwerty"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access_token":"a","refresh_token":"r","token_type":"bearer"}`, rec.Body.String())
	assert.Equal(t, "pp@meta.ua", svc.gotEmail)
	assert.Equal(t, "qwerty", svc.gotPassword)

	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"pp@meta.ua","password":"qwerty"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.loginErr = auth.ErrInvalidCredentials
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/auth/login", `{"username":"pp@meta.ua","password":"x"}`).Code)

	svc.loginErr = auth.ErrEmailNotConfirmed
	rec = do(e, http.MethodPost, "/api/auth/login", `{"username":"pp@meta.ua","password":"qwerty"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email not confirmed")

	svc.loginErr = fmt.Errorf("store refresh token: %w", repository.ErrUserNotFound)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/auth/login", `{"username":"pp@meta.ua","password":"qwerty"}`).Code)

	svc.loginErr = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodPost, "/api/auth/login", `{"username":"pp@meta.ua","password":"qwerty"}`).Code)

	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodPost, "/api/auth/login", `{"username":"pp@meta.ua"}`).Code)
}

func TestRefreshToken(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer old-refresh")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-refresh", svc.gotRefresh)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/auth/refresh_token", "").Code)

	svc.refreshErr = auth.ErrUnauthorized
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.refreshErr = fmt.Errorf("store refresh token: %w", repository.ErrUserNotFound)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfirmedEmail(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	rec := do(e, http.MethodGet, "/api/auth/confirmed_email/tok", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email confirmed")

	svc.confirmed = true
	rec = do(e, http.MethodGet, "/api/auth/confirmed_email/tok", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already confirmed")

	cases := map[error]int{
		auth.ErrEmailTokenInvalid:  http.StatusUnprocessableEntity,
		auth.ErrWrongScope:         http.StatusUnauthorized,
		auth.ErrVerificationFailed: http.StatusBadRequest,
		errors.New("db down"):      http.StatusInternalServerError,
	}
	for err, want := range cases {
		svc.confirmErr = err
		assert.Equal(t, want, do(e, http.MethodGet, "/api/auth/confirmed_email/tok", "").Code, err.Error())
	}
}

func TestRequestEmail_SameAnswerForEveryAccount(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	first := do(e, http.MethodPost, "/api/auth/request_email", `{"email":"pp@meta.ua"}`)
	svc.confirmed = true
	second := do(e, http.MethodPost, "/api/auth/request_email", `{"email":"pp@meta.ua"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, svc.requestCalls)

	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodPost, "/api/auth/request_email", `{"email":"nope"}`).Code)
}

func TestMe(t *testing.T) {
	e := newAuthServer(&stubAuth{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer access")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"pp@meta.ua"`)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/users/me", "").Code)
}

func avatarRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/avatar", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer access")
	return req
}

func TestUpdateAvatar(t *testing.T) {
	svc := &stubAuth{}
	e := newAuthServer(svc)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, avatarRequest(t, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "https://cdn.test/avatars/7")
	assert.Equal(t, "\x89PNG", svc.avatarBody)
	assert.Equal(t, "image/png", svc.avatarCType)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, avatarRequest(t, "text/plain", []byte("hi")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	svc.avatarErr = auth.ErrStorageDisabled
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, avatarRequest(t, "image/png", []byte("\x89PNG")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(pingerFunc(func(context.Context) error { return nil })))
	e.GET("/down", Health(pingerFunc(func(context.Context) error { return errors.New("refused") })))
	e.GET("/nodb", Health(nil))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/nodb", "").Code)
}
