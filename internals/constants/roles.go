package constants

import "fmt"

const (
	RoleSuperuser      = "superuser"
	RoleAdmin          = "admin"
	RoleFormLevelAdmin = "form_level_admin"
	RoleDonationAdmin  = "donation_admin"
	RoleWaqafAdmin     = "waqaf_admin"
	RoleStudent        = "student"
	RoleParent         = "parent"
)

// Template pesan error role
const (
	ErrOnlyAdminsCanAccess     = "Only admins may access %s."
	ErrOnlyFeeWritersCanAccess = "Only admins or form-level admins may access %s."
)

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorFeeWriter(feature string) string {
	return fmt.Sprintf(ErrOnlyFeeWritersCanAccess, feature)
}

// ==========================
// Grouped Role Slices
// ==========================
var (
	AllRoles = []string{
		RoleSuperuser,
		RoleAdmin,
		RoleFormLevelAdmin,
		RoleDonationAdmin,
		RoleWaqafAdmin,
		RoleStudent,
		RoleParent,
	}

	// Roles that may hold the fees admin surface (form-level admins are
	// additionally restricted by their level filter).
	FeeAdminRoles = []string{
		RoleSuperuser,
		RoleAdmin,
		RoleFormLevelAdmin,
	}

	AdminOnly = []string{
		RoleSuperuser,
		RoleAdmin,
	}

	PortalRoles = []string{
		RoleStudent,
		RoleParent,
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
