// internal/models/roles.go

package models

// UserRole is the role carried by an authenticated console user.
type UserRole string

const (
	RoleUser       UserRole = "USER"
	RoleModerator  UserRole = "MODERATOR"
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleHierarchy = map[UserRole]int{
	RoleUser:       0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsHigherOrEqual reports whether r ranks at or above target.
func (r UserRole) IsHigherOrEqual(target UserRole) bool {
	currentLevel, exists1 := roleHierarchy[r]
	targetLevel, exists2 := roleHierarchy[target]

	if !exists1 || !exists2 {
		return false
	}

	return currentLevel >= targetLevel
}

// CanSendNotifications reports whether the role may compose and submit notifications.
func (r UserRole) CanSendNotifications() bool {
	return r.IsHigherOrEqual(RoleAdmin)
}

func (r UserRole) String() string {
	return string(r)
}

// AllRoles returns every known role, lowest first.
func AllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleModerator,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// RoleFromString converts a raw role name, accepting the console's
// title-cased display form ("Admin") as well as the canonical one.
func RoleFromString(role string) (UserRole, bool) {
	r := UserRole(role)
	if r.IsValid() {
		return r, true
	}
	switch role {
	case "User":
		return RoleUser, true
	case "Moderator":
		return RoleModerator, true
	case "Admin":
		return RoleAdmin, true
	case "Super Admin", "SuperAdmin":
		return RoleSuperAdmin, true
	}
	return "", false
}
