package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/contacts-api/internal/model"
)

const contactColumns = "id, first_name, last_name, email, phone, birthday, created_at, updated_at"

// ContactRepo encapsulates all queries on the 'contacts' table. Single-row
// lookups return nil, nil when nothing matches and list queries return an
// empty, non-nil slice.
type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	c := new(model.Contact)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthday, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ContactRepo) queryOne(ctx context.Context, where string, args ...any) (*model.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE "+where+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ContactRepo) queryList(ctx context.Context, q string, args ...any) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one page of contacts ordered by id.
func (r *ContactRepo) List(ctx context.Context, limit, offset int) ([]*model.Contact, error) {
	return r.queryList(ctx,
		"SELECT "+contactColumns+" FROM contacts ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

func (r *ContactRepo) FindByID(ctx context.Context, id uint64) (*model.Contact, error) {
	return r.queryOne(ctx, "id = ?", id)
}

func (r *ContactRepo) FindByEmail(ctx context.Context, email string) (*model.Contact, error) {
	return r.queryOne(ctx, "email = ?", email)
}

// FindByFirstName returns contacts whose first name equals name exactly.
// The binary collation keeps the match case and accent sensitive.
func (r *ContactRepo) FindByFirstName(ctx context.Context, name string) ([]*model.Contact, error) {
	return r.queryList(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE first_name = ? COLLATE utf8mb4_bin ORDER BY id", name)
}

// FindByLastName returns contacts whose last name equals name exactly.
func (r *ContactRepo) FindByLastName(ctx context.Context, name string) ([]*model.Contact, error) {
	return r.queryList(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE last_name = ? COLLATE utf8mb4_bin ORDER BY id", name)
}

// Create inserts c and populates its ID and timestamps from the stored row.
func (r *ContactRepo) Create(ctx context.Context, c *model.Contact) error {
	const qInsert = `INSERT INTO contacts (first_name, last_name, email, phone, birthday)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday)
	if err != nil {
		if isDuplicate(err) {
			return ErrContactEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM contacts WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Update replaces every field of contact id with the values in c and
// returns the stored row. It returns nil, nil when the contact does not
// exist. MySQL reports zero affected rows for an unchanged row, so
// existence is checked with a read instead of RowsAffected.
func (r *ContactRepo) Update(ctx context.Context, id uint64, c *model.Contact) (*model.Contact, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	const q = `UPDATE contacts
	           SET first_name = ?, last_name = ?, email = ?, phone = ?, birthday = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, id); err != nil {
		if isDuplicate(err) {
			return nil, ErrContactEmailExists
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes contact id and returns the row as it was, or nil, nil when
// there was nothing to delete.
func (r *ContactRepo) Delete(ctx context.Context, id uint64) (*model.Contact, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id); err != nil {
		return nil, err
	}
	return existing, nil
}

// UpcomingBirthdays returns contacts whose birthday falls on a calendar day
// in [from, from+days], ordered by how soon the birthday comes. The window
// wraps across month and year ends. In non-leap years a Feb 29 birthday is
// celebrated on Mar 1.
func (r *ContactRepo) UpcomingBirthdays(ctx context.Context, from time.Time, days int) ([]*model.Contact, error) {
	keys := BirthdayWindow(from, days)
	if len(keys) == 0 {
		return make([]*model.Contact, 0), nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := "SELECT " + contactColumns + " FROM contacts WHERE DATE_FORMAT(birthday, '%m-%d') IN (?" +
		strings.Repeat(", ?", len(keys)-1) + ")"
	out, err := r.queryList(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := rank[k]; !ok {
			rank[k] = i
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[out[i].Birthday.MonthDay()], rank[out[j].Birthday.MonthDay()]
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// BirthdayWindow lists the "MM-DD" keys of the days from..from+days in
// order. "02-29" is placed next to "03-01" when the window covers Mar 1 of
// a non-leap year.
func BirthdayWindow(from time.Time, days int) []string {
	if days < 0 {
		return nil
	}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	keys := make([]string, 0, days+2)
	for i := 0; i <= days; i++ {
		d := day.AddDate(0, 0, i)
		if d.Month() == time.March && d.Day() == 1 && !isLeap(d.Year()) {
			keys = append(keys, "02-29")
		}
		keys = append(keys, d.Format("01-02"))
	}
	return keys
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
