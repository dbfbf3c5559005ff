// file: internals/helpers/scope_test.go
package helper

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sekolahku_backend/internals/constants"
)

func TestDeriveScope(t *testing.T) {
	userID := uuid.New()
	childID := uuid.New()

	cases := []struct {
		name        string
		role        string
		levels      []string
		studentIDs  []uuid.UUID
		wantAll     bool
		wantLevels  []string
		wantIDs     []uuid.UUID
		wantFees    bool
		wantPay     bool
		wantWaivers bool
		wantInit    bool
	}{
		{
			name: "superuser sees everything", role: constants.RoleSuperuser,
			wantAll: true, wantFees: true, wantPay: true, wantWaivers: true, wantInit: true,
		},
		{
			name: "admin sees everything", role: constants.RoleAdmin,
			wantAll: true, wantFees: true, wantPay: true, wantWaivers: true, wantInit: true,
		},
		{
			name: "form level admin is level bound", role: constants.RoleFormLevelAdmin,
			levels:     []string{"form 2", "Form 3", "nonsense"},
			wantLevels: []string{"Form 2", "Form 3"},
			wantFees:   true, wantPay: true, wantWaivers: true, wantInit: true,
		},
		{
			name: "student sees only itself", role: constants.RoleStudent,
			studentIDs: []uuid.UUID{childID},
			wantIDs:    []uuid.UUID{childID},
		},
		{
			name: "parent sees children and may initiate", role: constants.RoleParent,
			studentIDs: []uuid.UUID{childID},
			wantIDs:    []uuid.UUID{childID},
			wantInit:   true,
		},
		{
			name: "donation admin has no fee reach", role: constants.RoleDonationAdmin,
			wantIDs: []uuid.UUID{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DeriveScope(userID, tc.role, tc.levels, tc.studentIDs)
			assert.Equal(t, tc.wantAll, s.LevelAll)
			assert.Equal(t, tc.wantLevels, s.Levels)
			assert.Equal(t, tc.wantIDs, s.StudentIDs)
			assert.True(t, s.CanRead)
			assert.Equal(t, tc.wantFees, s.CanWriteFees)
			assert.Equal(t, tc.wantPay, s.CanWritePayments)
			assert.Equal(t, tc.wantWaivers, s.CanApproveWaivers)
			assert.Equal(t, tc.wantInit, s.CanInitiatePayments)
		})
	}
}

func TestScopeAllows(t *testing.T) {
	formAdmin := DeriveScope(uuid.New(), constants.RoleFormLevelAdmin, []string{"Form 1"}, nil)
	assert.True(t, formAdmin.AllowsLevel("form 1"))
	assert.False(t, formAdmin.AllowsLevel("Form 2"))

	childID := uuid.New()
	parent := DeriveScope(uuid.New(), constants.RoleParent, nil, []uuid.UUID{childID})
	assert.True(t, parent.AllowsStudentID(childID))
	assert.False(t, parent.AllowsStudentID(uuid.New()))
}

// An empty student scope must see an empty world, never someone else's
// rows.
func TestApplyToStudentsEmptyScope(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE students (student_id TEXT PRIMARY KEY, student_level TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO students VALUES (?, ?)`, uuid.NewString(), "Form 1").Error)

	empty := DeriveScope(uuid.New(), constants.RoleDonationAdmin, nil, nil)
	var count int64
	require.NoError(t, empty.ApplyToStudents(db.Table("students")).Count(&count).Error)
	assert.Zero(t, count)

	all := DeriveScope(uuid.New(), constants.RoleAdmin, nil, nil)
	require.NoError(t, all.ApplyToStudents(db.Table("students")).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
