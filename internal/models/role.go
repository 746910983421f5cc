package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrInvalidRole is returned when a role string is neither "worker" nor "employer".
var ErrInvalidRole = errors.New("extrajob: invalid role")

// Role is the closed set of account kinds. The zero value is not a valid role.
type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
)

// ParseRole converts a raw string at the identity boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleWorker:
		return RoleWorker, nil
	case RoleEmployer:
		return RoleEmployer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleWorker || r == RoleEmployer
}

// Value implements driver.Valuer. Writing an unknown role is a programming error
// and is refused rather than persisted.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("%w: null", ErrInvalidRole)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidRole, src)
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
