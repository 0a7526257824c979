package rbac

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "data.json"), schema.All(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cache := NewCache(30 * time.Minute)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return base })
	svc := NewService(db, zerolog.Nop(), cache)
	svc.SetClock(func() time.Time { return base })
	return svc
}

func mustPermission(t *testing.T, svc *Service, code, resource string, action Action) int64 {
	t.Helper()
	id, err := svc.CreatePermission(context.Background(), &Permission{
		Name: code, Code: code, Resource: resource, Action: action,
	})
	if err != nil {
		t.Fatalf("create permission %s: %v", code, err)
	}
	return id
}

func mustRole(t *testing.T, svc *Service, code string, permIDs ...int64) int64 {
	t.Helper()
	id, err := svc.CreateRole(context.Background(), &Role{
		Name: code, Code: code, PermissionIDs: permIDs,
	})
	if err != nil {
		t.Fatalf("create role %s: %v", code, err)
	}
	return id
}

func seedUser(t *testing.T, svc *Service, roleIDs ...int64) int64 {
	t.Helper()
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	var id int64
	err := svc.db.Update(func(tx *store.Tx) error {
		var err error
		id, err = tx.Insert(schema.Users, map[string]any{
			"username": "u", "status": "active", "roleIds": roleIDs,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestCreateRoleValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []Role{
		{Code: "nurse"},
		{Name: "Nurse"},
		{Name: "Nurse", Code: "nurse", Level: -1},
	}
	for _, r := range cases {
		if _, err := svc.CreateRole(ctx, &r); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("CreateRole(%+v): err = %v, want validation", r, err)
		}
	}

	id, err := svc.CreateRole(ctx, &Role{Name: "Nurse", Code: "nurse"})
	if err != nil {
		t.Fatalf("valid role rejected: %v", err)
	}
	r, err := svc.Role(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusActive || r.PermissionIDs == nil {
		t.Errorf("role = %+v, want active with empty permission list", r)
	}
}

func TestPermissionConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	update := mustPermission(t, svc, "patients:update", "patients", ActionUpdate)
	manage := mustPermission(t, svc, "patients:manage", "patients", ActionManage)
	ordersRead := mustPermission(t, svc, "orders:read", "orders", ActionRead)

	// distinct actions on one resource, and grants across resources, are fine
	if _, err := svc.CreateRole(ctx, &Role{Name: "A", Code: "a", PermissionIDs: []int64{read, update, ordersRead}}); err != nil {
		t.Fatalf("non-conflicting set rejected: %v", err)
	}

	// manage alongside another grant on the same resource conflicts
	if _, err := svc.CreateRole(ctx, &Role{Name: "B", Code: "b", PermissionIDs: []int64{read, manage}}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("manage+read: err = %v, want validation", err)
	}
	if _, err := svc.CreateRole(ctx, &Role{Name: "C", Code: "c", PermissionIDs: []int64{manage, update}}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("manage first: err = %v, want validation", err)
	}

	// manage alone is fine
	if _, err := svc.CreateRole(ctx, &Role{Name: "D", Code: "d", PermissionIDs: []int64{manage, ordersRead}}); err != nil {
		t.Errorf("lone manage rejected: %v", err)
	}

	roleID := mustRole(t, svc, "e", read)
	if err := svc.SetRolePermissions(ctx, roleID, []int64{read, manage}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("SetRolePermissions conflict: err = %v, want validation", err)
	}
}

func TestUserPermissionsResolution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	update := mustPermission(t, svc, "patients:update", "patients", ActionUpdate)
	ordersRead := mustPermission(t, svc, "orders:read", "orders", ActionRead)

	r1 := mustRole(t, svc, "nurse", read, ordersRead)
	r2 := mustRole(t, svc, "charge", read, update) // overlaps on read
	userID := seedUser(t, svc, r1, r2)

	perms, err := svc.UserPermissions(ctx, userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(perms) != 3 {
		t.Fatalf("perms = %d, want union of 3", len(perms))
	}

	if _, err := svc.UserPermissions(ctx, 999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown user: err = %v, want not found", err)
	}
}

func TestInactiveRolesAndPermissionsExcluded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	update := mustPermission(t, svc, "patients:update", "patients", ActionUpdate)
	ordersRead := mustPermission(t, svc, "orders:read", "orders", ActionRead)

	r1 := mustRole(t, svc, "nurse", read, update)
	r2 := mustRole(t, svc, "aux", ordersRead)
	userID := seedUser(t, svc, r1, r2)

	if err := svc.SetRoleStatus(ctx, r2, StatusInactive); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetPermissionStatus(ctx, update, StatusInactive); err != nil {
		t.Fatal(err)
	}

	perms, err := svc.UserPermissions(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0].ID != read {
		t.Errorf("perms = %+v, want only the active read grant", perms)
	}
}

func TestVerifyPermissionManageWildcard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	manage := mustPermission(t, svc, "patients:manage", "patients", ActionManage)
	roleID := mustRole(t, svc, "admin", manage)
	userID := seedUser(t, svc, roleID)

	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		ok, err := svc.VerifyPermission(ctx, userID, "patients", action)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("manage did not satisfy %s", action)
		}
	}

	// wildcard never crosses resources
	if ok, _ := svc.VerifyPermission(ctx, userID, "orders", ActionRead); ok {
		t.Error("manage on patients granted orders")
	}
}

func TestResolutionIsCachedUntilInvalidated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	roleID := mustRole(t, svc, "nurse", read)
	userID := seedUser(t, svc, roleID)

	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 1 {
		t.Fatalf("initial resolve = %d perms", len(perms))
	}

	// mutate the role under the cache's feet
	err := svc.db.Update(func(tx *store.Tx) error {
		r, err := getRole(tx, roleID)
		if err != nil {
			return err
		}
		r.PermissionIDs = []int64{}
		return tx.Put(schema.Roles, roleID, r)
	})
	if err != nil {
		t.Fatal(err)
	}

	// within the TTL the stale set is served
	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 1 {
		t.Errorf("cached resolve = %d perms, want stale 1", len(perms))
	}

	svc.cache.Invalidate(userID)
	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 0 {
		t.Errorf("after invalidation = %d perms, want 0", len(perms))
	}
}

func TestCacheExpiryRefreshesResolution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	roleID := mustRole(t, svc, "nurse", read)
	userID := seedUser(t, svc, roleID)

	if _, err := svc.UserPermissions(ctx, userID); err != nil {
		t.Fatal(err)
	}

	err := svc.db.Update(func(tx *store.Tx) error {
		r, err := getRole(tx, roleID)
		if err != nil {
			return err
		}
		r.PermissionIDs = []int64{}
		return tx.Put(schema.Roles, roleID, r)
	})
	if err != nil {
		t.Fatal(err)
	}

	svc.cache.SetClock(func() time.Time {
		return time.Date(2024, 6, 1, 12, 31, 0, 0, time.UTC)
	})
	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 0 {
		t.Errorf("after TTL = %d perms, want fresh 0", len(perms))
	}
}

func TestDeletePermissionCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	ordersRead := mustPermission(t, svc, "orders:read", "orders", ActionRead)
	r1 := mustRole(t, svc, "nurse", read, ordersRead)
	r2 := mustRole(t, svc, "aux", read)
	userID := seedUser(t, svc, r1)
	if _, err := svc.UserPermissions(ctx, userID); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeletePermission(ctx, read); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// every referencing role was stripped in the same commit
	role1, _ := svc.Role(ctx, r1)
	role2, _ := svc.Role(ctx, r2)
	if len(role1.PermissionIDs) != 1 || role1.PermissionIDs[0] != ordersRead {
		t.Errorf("role1 permissionIds = %v, want [%d]", role1.PermissionIDs, ordersRead)
	}
	if len(role2.PermissionIDs) != 0 {
		t.Errorf("role2 permissionIds = %v, want empty", role2.PermissionIDs)
	}

	// cache was cleared with it
	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 1 {
		t.Errorf("resolved = %d perms, want 1 after cascade", len(perms))
	}
}

func TestDeleteRoleCascadesToUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	read := mustPermission(t, svc, "patients:read", "patients", ActionRead)
	r1 := mustRole(t, svc, "nurse", read)
	r2 := mustRole(t, svc, "aux")
	userID := seedUser(t, svc, r1, r2)

	if err := svc.DeleteRole(ctx, r1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var roleIDs []int64
	err := svc.db.View(func(tx *store.Tx) error {
		var u struct {
			RoleIDs []int64 `json:"roleIds"`
		}
		if _, err := tx.Get(schema.Users, userID, &u); err != nil {
			return err
		}
		roleIDs = u.RoleIDs
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(roleIDs) != 1 || roleIDs[0] != r2 {
		t.Errorf("user roleIds = %v, want [%d]", roleIDs, r2)
	}

	if perms, _ := svc.UserPermissions(ctx, userID); len(perms) != 0 {
		t.Errorf("resolved = %d perms, want 0 after role delete", len(perms))
	}
}
