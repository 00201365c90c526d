// Package user defines the user record shown by the dashboard and the fields
// it can be sorted by.
package user

import (
	"fmt"
	"strings"
)

// DefaultLinkScheme is prefixed to the stored website to build the row link
const DefaultLinkScheme = "http://"

// User is one record of the upstream user list. Fields not listed here
// (address, company, ...) are ignored when decoding.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

// Link returns the external link for the user's website
func (u User) Link(scheme string) string {
	if scheme == "" {
		scheme = DefaultLinkScheme
	}
	return scheme + u.Website
}

// SortField selects the single field the derived list is ordered by
type SortField string

const (
	SortByName     SortField = "name"
	SortByUsername SortField = "username"
	SortByEmail    SortField = "email"
)

// SortFields returns the selectable fields in selector order
func SortFields() []SortField {
	return []SortField{SortByName, SortByEmail, SortByUsername}
}

// ParseSortField converts a string to a SortField
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SortByName, SortByUsername, SortByEmail:
		return f, nil
	default:
		return "", fmt.Errorf("invalid sort field: %q (expected name, username or email)", s)
	}
}

// Value returns the text of the field for u
func (f SortField) Value(u User) string {
	switch f {
	case SortByUsername:
		return u.Username
	case SortByEmail:
		return u.Email
	default:
		return u.Name
	}
}

// Label returns the human readable selector label
func (f SortField) Label() string {
	switch f {
	case SortByUsername:
		return "Sort by Username"
	case SortByEmail:
		return "Sort by Email"
	default:
		return "Sort by Name"
	}
}

// Next returns the field following f in selector order, wrapping around
func (f SortField) Next() SortField {
	return f.step(1)
}

// Prev returns the field preceding f in selector order, wrapping around
func (f SortField) Prev() SortField {
	return f.step(-1)
}

func (f SortField) step(delta int) SortField {
	fields := SortFields()
	for i, candidate := range fields {
		if candidate == f {
			return fields[(i+delta+len(fields))%len(fields)]
		}
	}
	return SortByName
}
