package model

// Role gates write access to catalog entities and visibility of
// reservations. Admins manage the catalog and see every reservation but may
// not create bookings; users book seats and see only their own records.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User is an application account. PasswordHash is only populated by the
// local credential store and is never serialized into API responses.
//
// Fields:
//  ID           – unique identifier.
//  Email        – unique, lower-cased email address.
//  Name         – display name.
//  Role         – "admin" or "user".
//  PasswordHash – bcrypt hash of the password (local store only).
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}
