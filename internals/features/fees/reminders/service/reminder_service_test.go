// file: internals/features/fees/reminders/service/reminder_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	model "sekolahku_backend/internals/features/fees/reminders/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	userModel "sekolahku_backend/internals/features/users/model"
)

// recordingChannel captures outbound messages and optionally fails.
type recordingChannel struct {
	emails []string
	sms    []string
	fail   bool
}

func (r *recordingChannel) SendEmail(ctx context.Context, to, subject, body string) error {
	if r.fail {
		return errors.New("smtp relay unavailable")
	}
	r.emails = append(r.emails, to+": "+subject)
	return nil
}

func (r *recordingChannel) SendSms(ctx context.Context, msisdn, body string) error {
	if r.fail {
		return errors.New("sms gateway unavailable")
	}
	r.sms = append(r.sms, msisdn)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingChannel) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&studentModel.StudentModel{},
		&catalogModel.FeeCategoryModel{},
		&catalogModel.FeeStructureModel{},
		&catalogModel.FeeWaiverModel{},
		&obligationModel.FeeStatusModel{},
		&model.ReminderLogModel{},
		&userModel.UserModel{},
		&userModel.RoleProfileModel{},
		&userModel.ParentStudentModel{},
	))
	ch := &recordingChannel{}
	return &Dispatcher{DB: db, Email: ch, Sms: ch}, ch
}

func seedObligation(t *testing.T, db *gorm.DB, due time.Time, amount float64) *obligationModel.FeeStatusModel {
	t.Helper()
	student := &studentModel.StudentModel{
		StudentCode:       "STU-" + uuid.NewString()[:8],
		StudentName:       "Reminder Target",
		StudentLevel:      "Form 1",
		StudentEnrollYear: 2026,
		StudentIsActive:   true,
	}
	require.NoError(t, db.Create(student).Error)

	category := &catalogModel.FeeCategoryModel{
		FeeCategoryName:     "Tuition " + uuid.NewString()[:8],
		FeeCategoryKind:     catalogModel.FeeCategoryKindBulk,
		FeeCategoryIsActive: true,
	}
	require.NoError(t, db.Create(category).Error)

	structure := &catalogModel.FeeStructureModel{
		FeeStructureCategoryID: category.FeeCategoryID,
		FeeStructureLevel:      "Form 1",
		FeeStructureFrequency:  catalogModel.FeeFrequencyYearly,
		FeeStructureAmount:     amount,
		FeeStructureIsActive:   true,
	}
	require.NoError(t, db.Create(structure).Error)

	obligation := &obligationModel.FeeStatusModel{
		FeeStatusStudentID:      student.StudentID,
		FeeStatusFeeStructureID: structure.FeeStructureID,
		FeeStatusDueDate:        due,
		FeeStatusAmount:         amount,
		FeeStatusState:          obligationModel.FeeStatusPending,
	}
	require.NoError(t, db.Create(obligation).Error)
	return obligation
}

func linkStudentAccount(t *testing.T, db *gorm.DB, studentID uuid.UUID, email string) {
	t.Helper()
	user := &userModel.UserModel{
		UserName: "u" + uuid.NewString()[:8],
		FullName: "Student Account",
		Email:    email,
		Password: "irrelevant-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&userModel.RoleProfileModel{
		RoleProfileUserID:    user.ID,
		RoleProfileRole:      constants.RoleStudent,
		RoleProfileStudentID: &studentID,
	}).Error)
}

func linkParent(t *testing.T, db *gorm.DB, studentID uuid.UUID, email string, phone *string) {
	t.Helper()
	user := &userModel.UserModel{
		UserName: "p" + uuid.NewString()[:8],
		FullName: "Parent Account",
		Email:    email,
		Phone:    phone,
		Password: "irrelevant-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&userModel.ParentStudentModel{
		ParentStudentUserID:    user.ID,
		ParentStudentStudentID: studentID,
	}).Error)
}

func TestSelectCandidatesBuckets(t *testing.T) {
	d, _ := newTestDispatcher(t)
	now := time.Now()

	overdue := seedObligation(t, d.DB, now.AddDate(0, 0, -3), 100)
	upcoming := seedObligation(t, d.DB, now.AddDate(0, 0, 3), 200)
	farOut := seedObligation(t, d.DB, now.AddDate(0, 0, 30), 300)

	got, err := d.SelectCandidates(model.ReminderBucketOverdue, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.FeeStatusID, got[0].Obligation.FeeStatusID)

	got, err = d.SelectCandidates(model.ReminderBucketUpcoming, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, upcoming.FeeStatusID, got[0].Obligation.FeeStatusID)
	assert.InDelta(t, 200.0, got[0].EffectiveAmount, 0.001)

	// The 30-day line appears in no bucket yet.
	_ = farOut

	_, err = d.SelectCandidates(model.ReminderBucket("bogus"), now)
	require.ErrorIs(t, err, ErrNotDue)
}

func TestSelectCandidatesSkipsFullyWaived(t *testing.T) {
	d, _ := newTestDispatcher(t)
	now := time.Now()

	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, 2), 500)

	var structure catalogModel.FeeStructureModel
	require.NoError(t, d.DB.First(&structure, "fee_structure_id = ?", obligation.FeeStatusFeeStructureID).Error)

	pct := 100.0
	require.NoError(t, d.DB.Create(&catalogModel.FeeWaiverModel{
		FeeWaiverStudentID:  obligation.FeeStatusStudentID,
		FeeWaiverCategoryID: structure.FeeStructureCategoryID,
		FeeWaiverType:       catalogModel.WaiverTypeFullWaiver,
		FeeWaiverPercentage: &pct,
		FeeWaiverReason:     "scholarship",
		FeeWaiverStartDate:  now.AddDate(0, -1, 0),
		FeeWaiverEndDate:    now.AddDate(1, 0, 0),
		FeeWaiverStatus:     catalogModel.WaiverStatusApproved,
	}).Error)

	got, err := d.SelectCandidates(model.ReminderBucketUpcoming, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSendLogsAndDeduplicates(t *testing.T) {
	d, ch := newTestDispatcher(t)
	now := time.Now()

	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -2), 150)
	linkStudentAccount(t, d.DB, obligation.FeeStatusStudentID, "student@example.test")

	entry, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderStatusSent, entry.ReminderLogStatus)
	assert.Equal(t, model.ReminderChannelEmail, entry.ReminderLogChannel)
	assert.Equal(t, "student@example.test", entry.ReminderLogRecipient)
	require.Len(t, ch.emails, 1)
	assert.Contains(t, ch.emails[0], "OVERDUE")

	// Same obligation, bucket and day: the first log row stands.
	_, err = d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.ErrorIs(t, err, ErrAlreadyReminded)
	assert.Len(t, ch.emails, 1)

	// The next day a fresh nudge goes out again.
	_, err = d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, ch.emails, 2)
}

func TestSendRejectsWrongBucket(t *testing.T) {
	d, _ := newTestDispatcher(t)
	now := time.Now()

	upcoming := seedObligation(t, d.DB, now.AddDate(0, 0, 3), 150)
	_, err := d.Send(context.Background(), upcoming.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.ErrorIs(t, err, ErrNotDue)
}

func TestSendRecipientLadder(t *testing.T) {
	d, ch := newTestDispatcher(t)
	now := time.Now()

	// No student account: the parent phone wins over the parent email.
	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 80)
	phone := "+60123456789"
	linkParent(t, d.DB, obligation.FeeStatusStudentID, "parent@example.test", &phone)

	entry, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderChannelSms, entry.ReminderLogChannel)
	assert.Equal(t, phone, entry.ReminderLogRecipient)
	assert.Len(t, ch.sms, 1)

	// A parent without a phone falls back to their email.
	second := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 90)
	linkParent(t, d.DB, second.FeeStatusStudentID, "onlyemail@example.test", nil)

	entry, err = d.Send(context.Background(), second.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderChannelEmail, entry.ReminderLogChannel)
	assert.Equal(t, "onlyemail@example.test", entry.ReminderLogRecipient)
}

func TestSendHonorsRequestedChannel(t *testing.T) {
	d, ch := newTestDispatcher(t)
	now := time.Now()

	prevPhone := configs.FallbackAdminPhone
	configs.FallbackAdminPhone = ""
	t.Cleanup(func() { configs.FallbackAdminPhone = prevPhone })

	// Student email and parent phone both exist; the request picks.
	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 80)
	linkStudentAccount(t, d.DB, obligation.FeeStatusStudentID, "student@example.test")
	phone := "+60129876543"
	linkParent(t, d.DB, obligation.FeeStatusStudentID, "parent@example.test", &phone)

	entry, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, model.ReminderChannelSms, now)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderChannelSms, entry.ReminderLogChannel)
	assert.Equal(t, phone, entry.ReminderLogRecipient)
	assert.Len(t, ch.sms, 1)
	assert.Empty(t, ch.emails)

	// An sms request with no reachable phone refuses instead of
	// silently switching channels.
	second := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 90)
	linkStudentAccount(t, d.DB, second.FeeStatusStudentID, "emailonly@example.test")
	_, err = d.Send(context.Background(), second.FeeStatusID, model.ReminderBucketOverdue, model.ReminderChannelSms, now)
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestRenderTemplateCountsDays(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	overdue := &Candidate{
		Obligation: obligationModel.FeeStatusModel{
			FeeStatusDueDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		StudentName:     "Aisha",
		CategoryName:    "Tuition",
		EffectiveAmount: 250,
		Bucket:          model.ReminderBucketOverdue,
	}
	subject, body := renderTemplate(overdue, today)
	assert.Contains(t, subject, "OVERDUE")
	assert.Contains(t, body, "6 days overdue")

	upcoming := &Candidate{
		Obligation: obligationModel.FeeStatusModel{
			FeeStatusDueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		StudentName:     "Aisha",
		CategoryName:    "Tuition",
		EffectiveAmount: 250,
		Bucket:          model.ReminderBucketUpcoming,
	}
	_, body = renderTemplate(upcoming, today)
	assert.Contains(t, body, "in 5 days")
}

func TestSendNoRecipient(t *testing.T) {
	d, _ := newTestDispatcher(t)
	now := time.Now()

	prevEmail, prevPhone := configs.FallbackAdminEmail, configs.FallbackAdminPhone
	configs.FallbackAdminEmail, configs.FallbackAdminPhone = "", ""
	t.Cleanup(func() {
		configs.FallbackAdminEmail, configs.FallbackAdminPhone = prevEmail, prevPhone
	})

	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 80)
	_, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.ErrorIs(t, err, ErrNoRecipient)

	// With a fallback configured the office inbox gets the nudge.
	configs.FallbackAdminEmail = "bursar@example.test"
	entry, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)
	assert.Equal(t, "bursar@example.test", entry.ReminderLogRecipient)
}

func TestSendRecordsDeliveryFailure(t *testing.T) {
	d, ch := newTestDispatcher(t)
	ch.fail = true
	now := time.Now()

	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -1), 80)
	linkStudentAccount(t, d.DB, obligation.FeeStatusStudentID, "student@example.test")

	entry, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderStatusFailed, entry.ReminderLogStatus)
	require.NotNil(t, entry.ReminderLogError)
	assert.Contains(t, *entry.ReminderLogError, "unavailable")

	var count int64
	require.NoError(t, d.DB.Model(&model.ReminderLogModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSelectCandidatesHonorsCooldown(t *testing.T) {
	d, _ := newTestDispatcher(t)
	now := time.Now()

	obligation := seedObligation(t, d.DB, now.AddDate(0, 0, -2), 120)
	linkStudentAccount(t, d.DB, obligation.FeeStatusStudentID, "student@example.test")

	_, err := d.Send(context.Background(), obligation.FeeStatusID, model.ReminderBucketOverdue, "", now)
	require.NoError(t, err)

	// Freshly nudged lines drop out of the candidate set.
	got, err := d.SelectCandidates(model.ReminderBucketOverdue, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDispatchDueSweepsBothBuckets(t *testing.T) {
	d, ch := newTestDispatcher(t)
	now := time.Now()

	overdue := seedObligation(t, d.DB, now.AddDate(0, 0, -2), 100)
	upcoming := seedObligation(t, d.DB, now.AddDate(0, 0, 4), 200)
	linkStudentAccount(t, d.DB, overdue.FeeStatusStudentID, "late@example.test")
	linkStudentAccount(t, d.DB, upcoming.FeeStatusStudentID, "early@example.test")

	sent, failed := d.DispatchDue(context.Background(), now)
	assert.Equal(t, 2, sent)
	assert.Zero(t, failed)
	assert.Len(t, ch.emails, 2)

	// A second sweep the same day is a no-op.
	sent, failed = d.DispatchDue(context.Background(), now)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
}
