// Package rbac implements roles, permissions, and the authorization
// resolver. Resolution walks user -> active roles -> union of permission
// ids -> active permissions, cached per user with a fixed TTL. Deleting a
// role or permission cascades over every referencing row inside one
// transaction: a permission must never vanish while a role still lists it.
package rbac

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

type Service struct {
	db     *store.Store
	logger zerolog.Logger
	cache  *Cache
	now    func() time.Time
}

func NewService(db *store.Store, logger zerolog.Logger, cache *Cache) *Service {
	return &Service{db: db, logger: logger, cache: cache, now: time.Now}
}

// SetClock replaces the service's time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Cache exposes the permission cache so collaborators (role assignment in
// the identity service) can invalidate entries.
func (s *Service) PermissionCache() *Cache { return s.cache }

// -- Permissions --

func (s *Service) CreatePermission(ctx context.Context, p *Permission) (int64, error) {
	if p.Name == "" || p.Code == "" || p.Resource == "" || p.Action == "" {
		return 0, apperr.Validation(schema.Permissions, "name, code, resource and action are required")
	}
	now := s.now().UTC()
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Type == "" {
		p.Type = TypeOperation
	}
	p.CreatedAt, p.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		var err error
		id, err = store.Create(tx, schema.Permissions, p)
		return err
	})
	return id, err
}

func (s *Service) Permissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	err := s.db.View(func(tx *store.Tx) error {
		return tx.Scan(schema.Permissions, func(_ int64, raw json.RawMessage) (bool, error) {
			var p Permission
			if err := json.Unmarshal(raw, &p); err != nil {
				return false, err
			}
			perms = append(perms, p)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Code < perms[j].Code })
	return perms, nil
}

// SetPermissionStatus activates or deactivates a permission. The whole
// cache is dropped: any user may hold the permission through any role.
func (s *Service) SetPermissionStatus(ctx context.Context, id int64, status EntityStatus) error {
	err := s.db.Update(func(tx *store.Tx) error {
		p, err := getPermission(tx, id)
		if err != nil {
			return err
		}
		p.Status = status
		p.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Permissions, id, p)
	})
	if err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// DeletePermission removes a permission and strips its id from every
// role's permissionIds in the same transaction.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getPermission(tx, id); err != nil {
			return err
		}
		roles, err := scanRoles(tx)
		if err != nil {
			return err
		}
		for i := range roles {
			stripped := removeID(roles[i].PermissionIDs, id)
			if len(stripped) == len(roles[i].PermissionIDs) {
				continue
			}
			roles[i].PermissionIDs = stripped
			roles[i].UpdatedAt = s.now().UTC()
			if err := tx.Put(schema.Roles, roles[i].ID, &roles[i]); err != nil {
				return err
			}
		}
		return tx.Delete(schema.Permissions, id)
	})
	if err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// -- Roles --

// CreateRole validates the role and rejects permission sets with
// conflicting grants.
func (s *Service) CreateRole(ctx context.Context, r *Role) (int64, error) {
	if r.Name == "" || r.Code == "" {
		return 0, apperr.Validation(schema.Roles, "name and code are required")
	}
	if r.Level < 0 {
		return 0, apperr.Validation(schema.Roles, "level must not be negative")
	}
	now := s.now().UTC()
	if r.Status == "" {
		r.Status = StatusActive
	}
	if r.PermissionIDs == nil {
		r.PermissionIDs = []int64{}
	}
	r.CreatedAt, r.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		perms, err := permissionsByIDs(tx, r.PermissionIDs)
		if err != nil {
			return err
		}
		if HasConflicts(perms) {
			return apperr.Validation(schema.Roles, "permission set has conflicting grants")
		}
		id, err = store.Create(tx, schema.Roles, r)
		return err
	})
	return id, err
}

func (s *Service) Role(ctx context.Context, id int64) (*Role, error) {
	var r *Role
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		r, err = getRole(tx, id)
		return err
	})
	return r, err
}

func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		roles, err = scanRoles(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Code < roles[j].Code })
	return roles, nil
}

// SetRolePermissions replaces a role's permission set after a conflict
// check, then drops the whole cache.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	err := s.db.Update(func(tx *store.Tx) error {
		r, err := getRole(tx, roleID)
		if err != nil {
			return err
		}
		perms, err := permissionsByIDs(tx, permissionIDs)
		if err != nil {
			return err
		}
		if HasConflicts(perms) {
			return apperr.Validation(schema.Roles, "permission set has conflicting grants")
		}
		r.PermissionIDs = append([]int64(nil), permissionIDs...)
		r.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Roles, roleID, r)
	})
	if err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// SetRoleStatus activates or deactivates a role.
func (s *Service) SetRoleStatus(ctx context.Context, id int64, status EntityStatus) error {
	err := s.db.Update(func(tx *store.Tx) error {
		r, err := getRole(tx, id)
		if err != nil {
			return err
		}
		r.Status = status
		r.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Roles, id, r)
	})
	if err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// DeleteRole removes a role and strips its id from every user's roleIds
// in the same transaction.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getRole(tx, id); err != nil {
			return err
		}
		type userRow struct {
			ID      int64   `json:"id"`
			RoleIDs []int64 `json:"roleIds"`
		}
		var touched []json.RawMessage
		var ids []int64
		err := tx.Scan(schema.Users, func(rowID int64, raw json.RawMessage) (bool, error) {
			var u userRow
			if err := json.Unmarshal(raw, &u); err != nil {
				return false, err
			}
			if len(removeID(u.RoleIDs, id)) != len(u.RoleIDs) {
				touched = append(touched, raw)
				ids = append(ids, rowID)
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		for i, raw := range touched {
			var full map[string]any
			if err := json.Unmarshal(raw, &full); err != nil {
				return err
			}
			var u userRow
			if err := json.Unmarshal(raw, &u); err != nil {
				return err
			}
			full["roleIds"] = removeID(u.RoleIDs, id)
			if err := tx.Put(schema.Users, ids[i], full); err != nil {
				return err
			}
		}
		return tx.Delete(schema.Roles, id)
	})
	if err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// -- Resolution --

// UserPermissions resolves the effective permission set for a user,
// serving from the cache within the TTL.
func (s *Service) UserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	if perms, ok := s.cache.Get(userID); ok {
		return perms, nil
	}

	var perms []Permission
	err := s.db.View(func(tx *store.Tx) error {
		type userRow struct {
			RoleIDs []int64 `json:"roleIds"`
		}
		var u userRow
		ok, err := tx.Get(schema.Users, userID, &u)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.Users, userID)
		}

		permIDs := make(map[int64]struct{})
		for _, roleID := range u.RoleIDs {
			var r Role
			ok, err := tx.Get(schema.Roles, roleID, &r)
			if err != nil {
				return err
			}
			if !ok || r.Status != StatusActive {
				continue
			}
			for _, pid := range r.PermissionIDs {
				permIDs[pid] = struct{}{}
			}
		}

		for pid := range permIDs {
			var p Permission
			ok, err := tx.Get(schema.Permissions, pid, &p)
			if err != nil {
				return err
			}
			if ok && p.Status == StatusActive {
				perms = append(perms, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	s.cache.Set(userID, perms)
	return perms, nil
}

// VerifyPermission reports whether the user holds a permission for the
// resource with the requested action or the manage wildcard.
func (s *Service) VerifyPermission(ctx context.Context, userID int64, resource string, action Action) (bool, error) {
	perms, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Resource == resource && (p.Action == action || p.Action == ActionManage) {
			return true, nil
		}
	}
	return false, nil
}

// HasConflicts reports whether a permission set grants the same resource
// twice in overlapping ways: any duplicate action, or a manage grant
// alongside any other grant on the same resource.
func HasConflicts(perms []Permission) bool {
	byResource := make(map[string]map[Action]struct{})
	for _, p := range perms {
		actions, ok := byResource[p.Resource]
		if !ok {
			actions = make(map[Action]struct{})
			byResource[p.Resource] = actions
		}
		if _, dup := actions[p.Action]; dup {
			return true
		}
		if _, hasManage := actions[ActionManage]; hasManage || (p.Action == ActionManage && len(actions) > 0) {
			return true
		}
		actions[p.Action] = struct{}{}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func getPermission(tx *store.Tx, id int64) (*Permission, error) {
	var p Permission
	ok, err := tx.Get(schema.Permissions, id, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Permissions, id)
	}
	return &p, nil
}

func getRole(tx *store.Tx, id int64) (*Role, error) {
	var r Role
	ok, err := tx.Get(schema.Roles, id, &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Roles, id)
	}
	return &r, nil
}

func scanRoles(tx *store.Tx) ([]Role, error) {
	var roles []Role
	err := tx.Scan(schema.Roles, func(_ int64, raw json.RawMessage) (bool, error) {
		var r Role
		if err := json.Unmarshal(raw, &r); err != nil {
			return false, err
		}
		roles = append(roles, r)
		return true, nil
	})
	return roles, err
}

func permissionsByIDs(tx *store.Tx, ids []int64) ([]Permission, error) {
	perms := make([]Permission, 0, len(ids))
	for _, id := range ids {
		p, err := getPermission(tx, id)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, nil
}
