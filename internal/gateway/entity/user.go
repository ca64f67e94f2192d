package entity

import "strings"

// DemoUserID is used when a request carries no user identifier.
const DemoUserID UserID = "demo-user"

// UserID identifies the owner of ideas and credits.
type UserID string

type User struct {
	ID UserID
}

func NewUser(rawID string) User {
	return User{ID: NormalizeUserID(rawID)}
}

// NormalizeUserID trims raw and substitutes DemoUserID for an empty value.
func NormalizeUserID(raw string) UserID {
	id := UserID(strings.TrimSpace(raw))
	if id.IsZero() {
		return DemoUserID
	}
	return id
}

func (id UserID) String() string {
	return strings.TrimSpace(string(id))
}

func (id UserID) IsZero() bool {
	return id.String() == ""
}
