package model

import "time"

// Contact represents an address book entry.  This struct corresponds to a
// row in the `contacts` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	FirstName – given name, searchable by exact match.
//	LastName  – family name, searchable by exact match.
//	Email     – unique email address.
//	Phone     – phone number in E.164 form.
//	Birthday  – calendar date of birth.
//	CreatedAt – timestamp when the contact was created.
//	UpdatedAt – timestamp of last update.
type Contact struct {
	ID        uint64    `json:"id"`         // contacts.id
	FirstName string    `json:"first_name"` // contacts.first_name
	LastName  string    `json:"last_name"`  // contacts.last_name
	Email     string    `json:"email"`      // contacts.email
	Phone     string    `json:"phone"`      // contacts.phone
	Birthday  Date      `json:"birthday"`   // contacts.birthday
	CreatedAt time.Time `json:"created_at"` // contacts.created_at
	UpdatedAt time.Time `json:"updated_at"` // contacts.updated_at
}
