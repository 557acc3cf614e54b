package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"
	"github.com/nyaruka/phonenumbers"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

const (
	defaultListLimit = 10
	maxListLimit     = 500
	birthdayWindow   = 7
	// numbers without a country prefix are read as Ukrainian
	defaultPhoneRegion = "UA"
)

// ContactStore is the persistence behind the contact endpoints.
type ContactStore interface {
	List(ctx context.Context, limit, offset int) ([]*model.Contact, error)
	FindByID(ctx context.Context, id uint64) (*model.Contact, error)
	FindByEmail(ctx context.Context, email string) (*model.Contact, error)
	FindByFirstName(ctx context.Context, name string) ([]*model.Contact, error)
	FindByLastName(ctx context.Context, name string) ([]*model.Contact, error)
	Create(ctx context.Context, c *model.Contact) error
	Update(ctx context.Context, id uint64, c *model.Contact) (*model.Contact, error)
	Delete(ctx context.Context, id uint64) (*model.Contact, error)
	UpcomingBirthdays(ctx context.Context, from time.Time, days int) ([]*model.Contact, error)
}

type ContactHandler struct {
	contacts ContactStore
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewContactHandler(contacts ContactStore, log logrus.FieldLogger) *ContactHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ContactHandler{contacts: contacts, log: log, now: time.Now}
}

type contactReq struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Birthday  model.Date `json:"birthday"`
}

func (r contactReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 150), is.Email),
		validation.Field(&r.Phone, validation.Required, validation.By(possiblePhone)),
		validation.Field(&r.Birthday, validation.By(pastDate)),
	)
}

func possiblePhone(v any) error {
	s, _ := v.(string)
	if _, err := normalizePhone(s); err != nil {
		return errors.New("must be a valid phone number")
	}
	return nil
}

func pastDate(v any) error {
	d, _ := v.(model.Date)
	if d.IsZero() {
		return errors.New("cannot be blank")
	}
	if d.After(time.Now()) {
		return errors.New("cannot be in the future")
	}
	return nil
}

// normalizePhone returns the E.164 form of s.
func normalizePhone(s string) (string, error) {
	num, err := phonenumbers.Parse(s, defaultPhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", errors.New("impossible number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// bindContact binds and validates the body and returns the contact it
// describes with trimmed names, lower-cased email and an E.164 phone.
func bindContact(c echo.Context) (*model.Contact, error) {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return nil, errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return nil, validationError(c, err)
	}
	phone, _ := normalizePhone(req.Phone)
	return &model.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     phone,
		Birthday:  req.Birthday,
	}, nil
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// List returns a page of contacts. limit defaults to 10 and is capped at
// 500.
func (h *ContactHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		return errorJSON(c, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return errorJSON(c, http.StatusUnprocessableEntity, "offset must be a non-negative integer")
	}
	list, err := h.contacts.List(c.Request().Context(), limit, offset)
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ContactHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusUnprocessableEntity, "invalid contact id")
	}
	contact, err := h.contacts.FindByID(c.Request().Context(), id)
	if err != nil {
		return internalError(c, h.log, err)
	}
	if contact == nil {
		return errorJSON(c, http.StatusNotFound, "Contact not found")
	}
	return c.JSON(http.StatusOK, contact)
}

// Create adds a contact. A taken email is answered with 409 before any
// write; the unique index covers concurrent inserts.
func (h *ContactHandler) Create(c echo.Context) error {
	contact, err := bindContact(c)
	if contact == nil {
		return err
	}
	ctx := c.Request().Context()

	existing, err := h.contacts.FindByEmail(ctx, contact.Email)
	if err != nil {
		return internalError(c, h.log, err)
	}
	if existing != nil {
		return errorJSON(c, http.StatusConflict, "Contact with this email already exists")
	}
	if err := h.contacts.Create(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrContactEmailExists) {
			return errorJSON(c, http.StatusConflict, "Contact with this email already exists")
		}
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusUnprocessableEntity, "invalid contact id")
	}
	contact, err := bindContact(c)
	if contact == nil {
		return err
	}
	updated, err := h.contacts.Update(c.Request().Context(), id, contact)
	switch {
	case errors.Is(err, repository.ErrContactEmailExists):
		return errorJSON(c, http.StatusConflict, "Contact with this email already exists")
	case err != nil:
		return internalError(c, h.log, err)
	case updated == nil:
		return errorJSON(c, http.StatusNotFound, "Contact not found")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *ContactHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusUnprocessableEntity, "invalid contact id")
	}
	deleted, err := h.contacts.Delete(c.Request().Context(), id)
	if err != nil {
		return internalError(c, h.log, err)
	}
	if deleted == nil {
		return errorJSON(c, http.StatusNotFound, "Contact not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Birthdays lists contacts with a birthday in the next seven days.
func (h *ContactHandler) Birthdays(c echo.Context) error {
	list, err := h.contacts.UpcomingBirthdays(c.Request().Context(), h.now(), birthdayWindow)
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Find searches by exact first or last name. The name is used as given:
// no trimming and no case folding. Without ?by= both are searched and the
// results merged.
func (h *ContactHandler) Find(c echo.Context) error {
	name := c.Param("name")
	ctx := c.Request().Context()

	var (
		list []*model.Contact
		err  error
	)
	switch c.QueryParam("by") {
	case "first_name":
		list, err = h.contacts.FindByFirstName(ctx, name)
	case "last_name":
		list, err = h.contacts.FindByLastName(ctx, name)
	case "":
		list, err = h.findByEitherName(ctx, name)
	default:
		return errorJSON(c, http.StatusUnprocessableEntity, "by must be first_name or last_name")
	}
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ContactHandler) findByEitherName(ctx context.Context, name string) ([]*model.Contact, error) {
	first, err := h.contacts.FindByFirstName(ctx, name)
	if err != nil {
		return nil, err
	}
	last, err := h.contacts.FindByLastName(ctx, name)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]bool, len(first))
	out := make([]*model.Contact, 0, len(first)+len(last))
	for _, c := range append(first, last...) {
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out, nil
}
