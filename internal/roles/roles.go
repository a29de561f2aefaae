// Package roles defines the administrator role hierarchy and the permissions each role grants.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an administrator tier.
type Role string

// Permission is a capability granted by a role.
type Permission string

const (
	Viewer     Role = "viewer"
	Editor     Role = "editor"
	Manager    Role = "manager"
	SuperAdmin Role = "super_admin"
)

const (
	PermissionContent  Permission = "content"
	PermissionUsers    Permission = "users"
	PermissionSettings Permission = "settings"
	PermissionSuper    Permission = "super"
)

// ErrUnknownRole is returned for role values outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

// ErrUnknownPermission is returned for permission values outside the catalogue.
var ErrUnknownPermission = errors.New("unknown permission")

// ErrPermissionsExceedRole is returned when a permission set is not granted by the role.
var ErrPermissionsExceedRole = errors.New("permissions exceed role")

// ErrDuplicatePermission is returned when a permission set lists the same permission twice.
var ErrDuplicatePermission = errors.New("duplicate permission")

// ordered from lowest to highest rank
var hierarchy = []Role{Viewer, Editor, Manager, SuperAdmin}

var grants = map[Role][]Permission{
	Viewer:     {PermissionContent},
	Editor:     {PermissionContent, PermissionUsers},
	Manager:    {PermissionContent, PermissionUsers, PermissionSettings},
	SuperAdmin: {PermissionContent, PermissionUsers, PermissionSettings, PermissionSuper},
}

// All returns every role ordered by rank.
func All() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy)
	return out
}

// AllPermissions returns the full permission catalogue.
func AllPermissions() []Permission {
	return PermissionsFor(SuperAdmin)
}

// ParseRole normalises s into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := grants[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return role, nil
}

// ParsePermission normalises s into a Permission.
func ParsePermission(s string) (Permission, error) {
	permission := Permission(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range grants[SuperAdmin] {
		if known == permission {
			return permission, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	_, ok := grants[r]
	return ok
}

// PermissionsFor returns a copy of the permissions granted by role, or nil for an unknown role.
func PermissionsFor(role Role) []Permission {
	granted, ok := grants[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(granted))
	copy(out, granted)
	return out
}

// Rank returns the position of role in the hierarchy, viewer being 0. Unknown roles rank -1.
func Rank(role Role) int {
	for i, r := range hierarchy {
		if r == role {
			return i
		}
	}
	return -1
}

// CanAssign reports whether an assigner holding assigner may grant target.
func CanAssign(assigner, target Role) bool {
	if !assigner.Valid() || !target.Valid() {
		return false
	}
	return Rank(assigner) >= Rank(target)
}

// HasMinimumRole reports whether user ranks at or above required.
func HasMinimumRole(user, required Role) bool {
	if !user.Valid() || !required.Valid() {
		return false
	}
	return Rank(user) >= Rank(required)
}

// Grants reports whether role includes permission.
func Grants(role Role, permission Permission) bool {
	for _, p := range grants[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Contains reports whether permissions includes permission.
func Contains(permissions []Permission, permission Permission) bool {
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermissions checks that permissions is a duplicate-free subset of what role grants
// and that a super admin holds the complete set.
func ValidatePermissions(role Role, permissions []Permission) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	seen := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		if _, err := ParsePermission(string(p)); err != nil {
			return err
		}
		if !Grants(role, p) {
			return fmt.Errorf("%w: %s does not grant %s", ErrPermissionsExceedRole, role, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePermission, p)
		}
		seen[p] = struct{}{}
	}

	if role == SuperAdmin && len(seen) != len(grants[SuperAdmin]) {
		return fmt.Errorf("%w: super_admin must hold every permission", ErrPermissionsExceedRole)
	}

	return nil
}

// Equal reports whether a and b hold the same set of permissions, ignoring order and repeats.
func Equal(a, b []Permission) bool {
	setA, setB := toSet(a), toSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for p := range setA {
		if _, ok := setB[p]; !ok {
			return false
		}
	}
	return true
}

// Normalize returns permissions without repeats, keeping first-seen order.
func Normalize(permissions []Permission) []Permission {
	if permissions == nil {
		return nil
	}
	seen := make(map[Permission]struct{}, len(permissions))
	out := make([]Permission, 0, len(permissions))
	for _, p := range permissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func toSet(permissions []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return set
}
