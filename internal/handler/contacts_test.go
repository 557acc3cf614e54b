package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

type memContacts struct {
	rows        map[uint64]*model.Contact
	nextID      uint64
	creates     int
	lastLimit   int
	lastOffset  int
	birthdayArg time.Time
	err         error
}

func newMemContacts() *memContacts { return &memContacts{rows: map[uint64]*model.Contact{}} }

func (m *memContacts) List(_ context.Context, limit, offset int) ([]*model.Contact, error) {
	m.lastLimit, m.lastOffset = limit, offset
	if m.err != nil {
		return nil, m.err
	}
	out := []*model.Contact{}
	for id := uint64(1); id <= m.nextID; id++ {
		if c, ok := m.rows[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContacts) FindByID(_ context.Context, id uint64) (*model.Contact, error) {
	return m.rows[id], m.err
}

func (m *memContacts) FindByEmail(_ context.Context, email string) (*model.Contact, error) {
	for _, c := range m.rows {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memContacts) byName(match func(*model.Contact) bool) []*model.Contact {
	out := []*model.Contact{}
	for id := uint64(1); id <= m.nextID; id++ {
		if c, ok := m.rows[id]; ok && match(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *memContacts) FindByFirstName(_ context.Context, name string) ([]*model.Contact, error) {
	return m.byName(func(c *model.Contact) bool { return c.FirstName == name }), nil
}

func (m *memContacts) FindByLastName(_ context.Context, name string) ([]*model.Contact, error) {
	return m.byName(func(c *model.Contact) bool { return c.LastName == name }), nil
}

func (m *memContacts) Create(_ context.Context, c *model.Contact) error {
	m.creates++
	if m.err != nil {
		return m.err
	}
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return nil
}

func (m *memContacts) Update(_ context.Context, id uint64, c *model.Contact) (*model.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.rows[id]; !ok {
		return nil, nil
	}
	c.ID = id
	m.rows[id] = c
	return c, nil
}

func (m *memContacts) Delete(_ context.Context, id uint64) (*model.Contact, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	delete(m.rows, id)
	return c, nil
}

func (m *memContacts) UpcomingBirthdays(_ context.Context, from time.Time, _ int) ([]*model.Contact, error) {
	m.birthdayArg = from
	return []*model.Contact{}, nil
}

func newContactServer(store *memContacts) *echo.Echo {
	logger, _ := test.NewNullLogger()
	h := NewContactHandler(store, logger)
	h.now = func() time.Time { return time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC) }

	e := echo.New()
	g := e.Group("/api/contacts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/birthday", h.Birthdays)
	g.GET("/find/:name", h.Find)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const petroJSON = `{"first_name":"Petro","last_name":"Petrenko","email":"pp@meta.ua","phone":"+380123456789","birthday":"1995-02-08"}`

func TestCreateContact(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)

	rec := do(e, http.MethodPost, "/api/contacts", petroJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got model.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, "Petro", got.FirstName)
	assert.Equal(t, "+380123456789", got.Phone)
	assert.Equal(t, "1995-02-08", got.Birthday.String())
}

func TestCreateContact_DuplicateEmailDoesNotInsert(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)

	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/contacts", petroJSON).Code)
	require.Equal(t, 1, store.creates)

	dup := strings.Replace(petroJSON, `"Petro"`, `"Pavlo"`, 1)
	dup = strings.Replace(dup, "pp@meta.ua", "PP@Meta.ua", 1)
	rec := do(e, http.MethodPost, "/api/contacts", dup)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Contact with this email already exists"}`, rec.Body.String())
	assert.Equal(t, 1, store.creates)
}

func TestCreateContact_RaceOnUniqueIndex(t *testing.T) {
	store := newMemContacts()
	store.err = repository.ErrContactEmailExists
	e := newContactServer(store)

	rec := do(e, http.MethodPost, "/api/contacts", petroJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateContact_Validation(t *testing.T) {
	e := newContactServer(newMemContacts())

	cases := map[string]string{
		"missing name":  `{"last_name":"P","email":"pp@meta.ua","phone":"+380123456789","birthday":"1995-02-08"}`,
		"bad email":     strings.Replace(petroJSON, "pp@meta.ua", "not-an-email", 1),
		"bad phone":     strings.Replace(petroJSON, "+380123456789", "12", 1),
		"no birthday":   strings.Replace(petroJSON, `"1995-02-08"`, `null`, 1),
		"future bday":   strings.Replace(petroJSON, "1995-02-08", "2999-01-01", 1),
		"long lastname": strings.Replace(petroJSON, "Petrenko", strings.Repeat("x", 51), 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/contacts", body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}

	rec := do(e, http.MethodPost, "/api/contacts", strings.Replace(petroJSON, "1995-02-08", "08.02.1995", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizePhone(t *testing.T) {
	got, err := normalizePhone("+38 (012) 345-67-89")
	require.NoError(t, err)
	assert.Equal(t, "+380123456789", got)

	got, err = normalizePhone("0123456789")
	require.NoError(t, err)
	assert.Equal(t, "+380123456789", got)

	_, err = normalizePhone("hello")
	assert.Error(t, err)
}

func TestGetUpdateDeleteContact(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/contacts", petroJSON).Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/contacts/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/contacts/2", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodGet, "/api/contacts/abc", "").Code)

	rec := do(e, http.MethodPut, "/api/contacts/1", strings.Replace(petroJSON, `"Petro"`, `"Pavlo"`, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Pavlo"`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPut, "/api/contacts/9", petroJSON).Code)

	rec = do(e, http.MethodDelete, "/api/contacts/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/contacts/1", "").Code)
}

func TestListContacts(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)

	rec := do(e, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 10, store.lastLimit)
	assert.Equal(t, 0, store.lastOffset)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/contacts?limit=500&offset=20", "").Code)
	assert.Equal(t, 500, store.lastLimit)
	assert.Equal(t, 20, store.lastOffset)

	for _, q := range []string{"limit=0", "limit=501", "limit=x", "offset=-1"} {
		assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodGet, "/api/contacts?"+q, "").Code, q)
	}

	store.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/api/contacts", "").Code)
}

func TestFindAndBirthdayRoutesAreNotShadowed(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/contacts", petroJSON).Code)
	other := `{"first_name":"Ivan","last_name":"Petro","email":"ip@meta.ua","phone":"+380501234567","birthday":"1990-07-01"}`
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/contacts", other).Code)

	rec := do(e, http.MethodGet, "/api/contacts/birthday", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC), store.birthdayArg)

	var found []model.Contact
	rec = do(e, http.MethodGet, "/api/contacts/find/Petrenko?by=last_name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "pp@meta.ua", found[0].Email)

	rec = do(e, http.MethodGet, "/api/contacts/find/Petro?by=first_name", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 1)

	rec = do(e, http.MethodGet, "/api/contacts/find/Petro", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 2)

	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodGet, "/api/contacts/find/Petro?by=email", "").Code)
}

func TestFindUsesNameAsGiven(t *testing.T) {
	store := newMemContacts()
	e := newContactServer(store)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/contacts", petroJSON).Code)

	for _, path := range []string{"/api/contacts/find/petro?by=first_name", "/api/contacts/find/%20Petro?by=first_name", "/api/contacts/find/PETRENKO"} {
		var found []model.Contact
		rec := do(e, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
		assert.Empty(t, found, path)
	}
}
