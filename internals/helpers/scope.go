// file: internals/helpers/scope.go
package helper

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
)

// Scope is the authorization value derived once per request. Every query
// that reaches the fees features is pre-intersected with it; scope is never
// applied only at presentation.
type Scope struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`

	// LevelAll is true for superuser/admin. Otherwise Levels carries the
	// canonical level-tags a form-level admin was assigned.
	LevelAll bool     `json:"level_all"`
	Levels   []string `json:"levels,omitempty"`

	// StudentIDs is non-nil for student/parent roles: the only students the
	// caller may see (own record, or their children).
	StudentIDs []uuid.UUID `json:"student_ids,omitempty"`

	CanRead           bool `json:"can_read"`
	CanWriteFees      bool `json:"can_write_fees"`
	CanWritePayments  bool `json:"can_write_payments"`
	CanApproveWaivers bool `json:"can_approve_waivers"`
	// Parents may initiate (cash/online record) but not confirm.
	CanInitiatePayments bool `json:"can_initiate_payments"`
}

// DeriveScope builds the Scope for a role per the derivation table.
// scopedLevels and studentIDs come from the caller's role profile.
func DeriveScope(userID uuid.UUID, role string, scopedLevels []string, studentIDs []uuid.UUID) Scope {
	s := Scope{UserID: userID, Role: role, CanRead: true}
	switch role {
	case constants.RoleSuperuser, constants.RoleAdmin:
		s.LevelAll = true
		s.CanWriteFees = true
		s.CanWritePayments = true
		s.CanApproveWaivers = true
		s.CanInitiatePayments = true
	case constants.RoleFormLevelAdmin:
		for _, lvl := range scopedLevels {
			if c := CanonicalLevel(lvl); c != "" {
				s.Levels = append(s.Levels, c)
			}
		}
		s.CanWriteFees = true
		s.CanWritePayments = true
		s.CanApproveWaivers = true
		s.CanInitiatePayments = true
	case constants.RoleStudent:
		s.StudentIDs = studentIDs
	case constants.RoleParent:
		s.StudentIDs = studentIDs
		s.CanInitiatePayments = true
	default:
		// donation_admin / waqaf_admin have no reach into the fees core.
		s.StudentIDs = []uuid.UUID{}
	}
	return s
}

const scopeLocalsKey = "fee_scope"

func SetScope(c *fiber.Ctx, s Scope) {
	c.Locals(scopeLocalsKey, s)
}

// GetScope returns the request scope set by the auth middleware.
func GetScope(c *fiber.Ctx) (Scope, error) {
	s, ok := c.Locals(scopeLocalsKey).(Scope)
	if !ok {
		return Scope{}, fiber.NewError(fiber.StatusUnauthorized, "Missing request scope")
	}
	return s, nil
}

// AllowsLevel reports whether the scope may touch the given level-tag.
func (s Scope) AllowsLevel(level string) bool {
	if s.LevelAll {
		return true
	}
	c := CanonicalLevel(level)
	for _, l := range s.Levels {
		if l == c {
			return true
		}
	}
	return false
}

// AllowsStudentID reports whether a student/parent scope covers the id.
// Level-filtered scopes answer true here; the level check happens against
// the student row itself.
func (s Scope) AllowsStudentID(id uuid.UUID) bool {
	if s.StudentIDs == nil {
		return true
	}
	for _, sid := range s.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// ApplyToStudents intersects a query over the students table with the scope.
// Used by every read path; an out-of-scope request simply sees nothing.
func (s Scope) ApplyToStudents(q *gorm.DB) *gorm.DB {
	if s.StudentIDs != nil {
		if len(s.StudentIDs) == 0 {
			return q.Where("1 = 0")
		}
		return q.Where("student_id IN ?", s.StudentIDs)
	}
	if !s.LevelAll {
		if len(s.Levels) == 0 {
			return q.Where("1 = 0")
		}
		return q.Where("student_level IN ?", s.Levels)
	}
	return q
}
