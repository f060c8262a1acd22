package config

import (
	"slices"
)

// AdminPermission is a capability granted to an administrator.
type AdminPermission string

const (
	PermissionListUsers          AdminPermission = "listUsers"
	PermissionRemoveUsers        AdminPermission = "removeUsers"
	PermissionManageAssignedTags AdminPermission = "manageAssignedTags"
	PermissionRemovePackage      AdminPermission = "removePackage"
)

var allPermissions = []AdminPermission{
	PermissionListUsers,
	PermissionRemoveUsers,
	PermissionManageAssignedTags,
	PermissionRemovePackage,
}

// AllPermissions returns every known permission in declaration order.
func AllPermissions() []AdminPermission {
	return slices.Clone(allPermissions)
}

// ParseAdminPermission converts a serialized permission tag. Tags are
// case-sensitive.
func ParseAdminPermission(raw string) (AdminPermission, bool) {
	p := AdminPermission(raw)
	if !slices.Contains(allPermissions, p) {
		return "", false
	}
	return p, true
}

func (p AdminPermission) String() string {
	return string(p)
}

// AdminID identifies an administrator and the permissions granted to them.
// The permission set is fixed at construction.
type AdminID struct {
	OAuthUserID string
	Email       string

	permissions map[AdminPermission]struct{}
}

// NewAdminID copies perms into a deduplicated set. Later changes to perms are
// not observed by the returned value.
func NewAdminID(oauthUserID, email string, perms []AdminPermission) AdminID {
	set := make(map[AdminPermission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return AdminID{
		OAuthUserID: oauthUserID,
		Email:       email,
		permissions: set,
	}
}

// Has reports whether the administrator holds p.
func (a AdminID) Has(p AdminPermission) bool {
	_, ok := a.permissions[p]
	return ok
}

// Permissions returns a sorted copy of the permission set.
func (a AdminID) Permissions() []AdminPermission {
	out := make([]AdminPermission, 0, len(a.permissions))
	for p := range a.permissions {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (a AdminID) toMap() map[string]any {
	perms := a.Permissions()
	tags := make([]any, len(perms))
	for i, p := range perms {
		tags[i] = string(p)
	}
	return map[string]any{
		"oauthUserId": a.OAuthUserID,
		"email":       a.Email,
		"permissions": tags,
	}
}
