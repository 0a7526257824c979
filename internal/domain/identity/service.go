// Package identity manages user accounts and login sessions. Tokens are
// opaque random strings persisted as session rows; expiry is enforced
// lazily at validation time, never by a background sweep.
package identity

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

// PermissionInvalidator drops a user's cached permission set after a role
// membership change.
type PermissionInvalidator interface {
	Invalidate(userID int64)
}

type Service struct {
	db          *store.Store
	logger      zerolog.Logger
	sessionTTL  time.Duration
	bcryptCost  int
	permissions PermissionInvalidator
	now         func() time.Time
}

func NewService(db *store.Store, logger zerolog.Logger, sessionTTL time.Duration, bcryptCost int) *Service {
	return &Service{db: db, logger: logger, sessionTTL: sessionTTL, bcryptCost: bcryptCost, now: time.Now}
}

// SetClock replaces the service's time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetPermissionInvalidator wires the authorization cache so role changes
// take effect before the cache TTL elapses.
func (s *Service) SetPermissionInvalidator(p PermissionInvalidator) { s.permissions = p }

// Register creates a new active account. The password is stored only as a
// bcrypt hash.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	if req.Username == "" || req.Password == "" || req.Name == "" {
		return 0, apperr.Validation(schema.Users, "username, password and name are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	u := &User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Department:   req.Department,
		Position:     req.Position,
		Status:       StatusActive,
		RoleIDs:      []int64{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var id int64
	err = s.db.Update(func(tx *store.Tx) error {
		existing, err := findUserByUsername(tx, req.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict(schema.Users, "username %q is taken", req.Username)
		}
		id, err = store.Create(tx, schema.Users, u)
		return err
	})
	return id, err
}

// Login verifies credentials and mints a session. Unknown username and
// wrong password surface as the same error kind so usernames cannot be
// probed.
func (s *Service) Login(ctx context.Context, username, password, deviceInfo string) (string, *User, error) {
	now := s.now().UTC()
	token := uuid.NewString()
	var user *User
	err := s.db.Update(func(tx *store.Tx) error {
		u, err := findUserByUsername(tx, username)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Authentication()
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return apperr.Authentication()
		}
		if u.Status != StatusActive {
			return apperr.Authentication()
		}

		sess := &Session{
			UserID:       u.ID,
			Token:        token,
			DeviceInfo:   deviceInfo,
			ExpiresAt:    now.Add(s.sessionTTL),
			LastAccessAt: now,
			CreatedAt:    now,
		}
		if _, err := store.Create(tx, schema.Sessions, sess); err != nil {
			return err
		}

		u.LastLoginAt = &now
		u.UpdatedAt = now
		if err := tx.Put(schema.Users, u.ID, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	s.logger.Info().Int64("user", user.ID).Msg("login")
	return token, user, nil
}

// ValidateSession resolves a token to its user. It fails for an absent
// token, an expired session, or a non-active owner; expired rows are left
// in place.
func (s *Service) ValidateSession(ctx context.Context, token string) (*User, error) {
	now := s.now().UTC()
	var user *User
	err := s.db.Update(func(tx *store.Tx) error {
		sess, err := findSessionByToken(tx, token)
		if err != nil {
			return err
		}
		if sess == nil {
			return apperr.Session("unknown token")
		}
		if !sess.ExpiresAt.After(now) {
			return apperr.Session("session expired")
		}
		var u User
		ok, err := tx.Get(schema.Users, sess.UserID, &u)
		if err != nil {
			return err
		}
		if !ok || u.Status != StatusActive {
			return apperr.Session("user is not active")
		}
		sess.LastAccessAt = now
		if err := tx.Put(schema.Sessions, sess.ID, sess); err != nil {
			return err
		}
		user = &u
		return nil
	})
	return user, err
}

// Logout deletes the session row. Logging out an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.db.Update(func(tx *store.Tx) error {
		sess, err := findSessionByToken(tx, token)
		if err != nil {
			return err
		}
		if sess == nil {
			return nil
		}
		return tx.Delete(schema.Sessions, sess.ID)
	})
}

// AssignRoles replaces a user's role memberships and invalidates their
// cached permission set.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	err := s.db.Update(func(tx *store.Tx) error {
		u, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		for _, rid := range roleIDs {
			var raw json.RawMessage
			ok, err := tx.Get(schema.Roles, rid, &raw)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound(schema.Roles, rid)
			}
		}
		u.RoleIDs = append([]int64(nil), roleIDs...)
		u.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Users, userID, u)
	})
	if err != nil {
		return err
	}
	if s.permissions != nil {
		s.permissions.Invalidate(userID)
	}
	return nil
}

// SetStatus changes an account's state. Disabling a user leaves existing
// sessions in place; they fail validation from the next access.
func (s *Service) SetStatus(ctx context.Context, userID int64, status UserStatus) error {
	return s.db.Update(func(tx *store.Tx) error {
		u, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		u.Status = status
		u.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Users, userID, u)
	})
}

// ChangePassword verifies the current password before writing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if next == "" {
		return apperr.Validation(schema.Users, "new password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *store.Tx) error {
		u, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
			return apperr.Authentication()
		}
		u.PasswordHash = string(hash)
		u.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Users, userID, u)
	})
}

func (s *Service) User(ctx context.Context, id int64) (*User, error) {
	var u *User
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		u, err = getUser(tx, id)
		return err
	})
	return u, err
}

// Users returns every account ordered by username.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.View(func(tx *store.Tx) error {
		return tx.Scan(schema.Users, func(_ int64, raw json.RawMessage) (bool, error) {
			var u User
			if err := json.Unmarshal(raw, &u); err != nil {
				return false, err
			}
			users = append(users, u)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func getUser(tx *store.Tx, id int64) (*User, error) {
	var u User
	ok, err := tx.Get(schema.Users, id, &u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Users, id)
	}
	return &u, nil
}

func findUserByUsername(tx *store.Tx, username string) (*User, error) {
	var found *User
	err := tx.ScanIndex(schema.Users, "username", username, func(_ int64, raw json.RawMessage) (bool, error) {
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return false, err
		}
		found = &u
		return false, nil
	})
	return found, err
}

func findSessionByToken(tx *store.Tx, token string) (*Session, error) {
	var found *Session
	err := tx.ScanIndex(schema.Sessions, "token", token, func(_ int64, raw json.RawMessage) (bool, error) {
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return false, err
		}
		found = &sess
		return false, nil
	})
	return found, err
}
