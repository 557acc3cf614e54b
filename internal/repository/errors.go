// Package repository contains the MySQL data access for users and contacts.
// Sentinel errors defined here let handlers tell constraint violations
// apart from plain storage failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user insert hits the unique index on
// users.email. Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("account already exists")

// ErrContactEmailExists is returned when a contact insert or update hits
// the unique index on contacts.email. Handlers translate it into 409.
var ErrContactEmailExists = errors.New("contact with this email already exists")

// ErrUserNotFound is returned by user updates that matched no row.
var ErrUserNotFound = errors.New("user not found")

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
