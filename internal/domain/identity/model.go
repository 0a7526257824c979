package identity

import "time"

// UserStatus is the account state. Only active users can log in or hold a
// valid session.
type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
	StatusLocked   UserStatus = "locked"
)

// User is a staff account. PasswordHash holds the bcrypt hash, never the
// plaintext; handlers blank it before returning a user.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Department   string     `json:"department,omitempty"`
	Position     string     `json:"position,omitempty"`
	Status       UserStatus `json:"status"`
	RoleIDs      []int64    `json:"roleIds"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) SetID(id int64) { u.ID = id }

// Sanitized returns a copy safe to serialize to clients.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Session is one issued login token. Expired sessions stay in storage and
// fail validation lazily.
type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Token        string    `json:"token"`
	DeviceInfo   string    `json:"deviceInfo,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastAccessAt time.Time `json:"lastAccessAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Session) SetID(id int64) { s.ID = id }

// RegisterRequest carries the new-account parameters.
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}
