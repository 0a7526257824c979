// Package seed bootstraps an empty store with the default permission
// catalog, the built-in roles, and the initial admin account. Seeding is
// idempotent: a store that already has users is left untouched.
package seed

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardkit/wardkit/internal/domain/identity"
	"github.com/wardkit/wardkit/internal/domain/rbac"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

// Options carries the configurable parts of the bootstrap.
type Options struct {
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

// resources that get the standard create/read/update/delete grants plus a
// manage wildcard.
var resources = []string{
	"wards",
	"rooms",
	"beds",
	"patients",
	"medical_records",
	"vital_signs",
	"nursing_records",
	"orders",
	"medication_records",
	"users",
	"roles",
	"permissions",
	"operation_logs",
}

var actions = []rbac.Action{
	rbac.ActionCreate,
	rbac.ActionRead,
	rbac.ActionUpdate,
	rbac.ActionDelete,
	rbac.ActionManage,
}

// Run seeds the store inside a single transaction and reports whether it
// did anything.
func Run(db *store.Store, logger zerolog.Logger, opts Options) (bool, error) {
	seeded := false
	err := db.Update(func(tx *store.Tx) error {
		users, err := tx.Count(schema.Users)
		if err != nil {
			return err
		}
		if users > 0 {
			return nil
		}
		seeded = true
		now := time.Now().UTC()

		permIDs := make(map[string]int64)
		var allPermIDs []int64
		for _, resource := range resources {
			for _, action := range actions {
				code := resource + ":" + string(action)
				p := rbac.Permission{
					Name:      code,
					Code:      code,
					Resource:  resource,
					Action:    action,
					Type:      rbac.TypeOperation,
					Status:    rbac.StatusActive,
					CreatedAt: now,
					UpdatedAt: now,
				}
				id, err := store.Create(tx, schema.Permissions, &p)
				if err != nil {
					return err
				}
				permIDs[code] = id
				allPermIDs = append(allPermIDs, id)
			}
		}

		manageAll := make([]int64, 0, len(resources))
		for _, resource := range resources {
			manageAll = append(manageAll, permIDs[resource+":manage"])
		}

		grants := func(codes ...string) []int64 {
			ids := make([]int64, 0, len(codes))
			for _, code := range codes {
				ids = append(ids, permIDs[code])
			}
			return ids
		}

		roles := []rbac.Role{
			{Name: "Administrator", Code: "admin", Level: 0, PermissionIDs: manageAll},
			{Name: "Doctor", Code: "doctor", Level: 1, PermissionIDs: grants(
				"patients:read", "patients:update",
				"medical_records:create", "medical_records:read", "medical_records:update",
				"vital_signs:read",
				"orders:manage",
				"medication_records:read",
			)},
			{Name: "Nurse", Code: "nurse", Level: 2, PermissionIDs: grants(
				"wards:read", "rooms:read", "beds:manage",
				"patients:create", "patients:read", "patients:update",
				"medical_records:read",
				"vital_signs:create", "vital_signs:read",
				"nursing_records:create", "nursing_records:read",
				"orders:read", "orders:update",
				"medication_records:manage",
			)},
			{Name: "Pharmacist", Code: "pharmacist", Level: 2, PermissionIDs: grants(
				"patients:read",
				"orders:read",
				"medication_records:read", "medication_records:update",
			)},
		}
		var adminRoleID int64
		for i := range roles {
			roles[i].Status = rbac.StatusActive
			roles[i].CreatedAt, roles[i].UpdatedAt = now, now
			id, err := store.Create(tx, schema.Roles, &roles[i])
			if err != nil {
				return err
			}
			if roles[i].Code == "admin" {
				adminRoleID = id
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), opts.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin := identity.User{
			Username:     opts.AdminUsername,
			PasswordHash: string(hash),
			Name:         "Administrator",
			Status:       identity.StatusActive,
			RoleIDs:      []int64{adminRoleID},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, err = store.Create(tx, schema.Users, &admin)
		return err
	})
	if err != nil {
		return false, err
	}
	if seeded {
		logger.Info().Str("admin", opts.AdminUsername).Msg("store seeded with default roles and permissions")
	}
	return seeded, nil
}
