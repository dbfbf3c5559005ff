// file: internals/features/fees/reminders/service/reminder_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	model "sekolahku_backend/internals/features/fees/reminders/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	userModel "sekolahku_backend/internals/features/users/model"
	"sekolahku_backend/internals/helpers/notifier"
)

var (
	// ErrAlreadyReminded: same obligation, bucket and day; the earlier log
	// row stands.
	ErrAlreadyReminded = errors.New("reminder already sent today")

	// ErrNotDue: the obligation does not belong to the requested bucket.
	ErrNotDue = errors.New("obligation is not in the requested reminder bucket")

	// ErrNoRecipient: no student email, no parent phone and no fallback
	// contact configured.
	ErrNoRecipient = errors.New("no reachable recipient for reminder")
)

// Candidate is one obligation eligible for a reminder, priced for today.
type Candidate struct {
	Obligation      obligationModel.FeeStatusModel `json:"obligation"`
	StudentName     string                         `json:"student_name"`
	CategoryName    string                         `json:"category_name"`
	EffectiveAmount float64                        `json:"effective_amount"`
	Bucket          model.ReminderBucket           `json:"bucket"`
}

// Dispatcher wires the channels once; the scheduler and the controller
// share one instance.
type Dispatcher struct {
	DB    *gorm.DB
	Email notifier.EmailChannel
	Sms   notifier.SmsChannel
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{DB: db, Email: notifier.DefaultEmail(), Sms: notifier.DefaultSms()}
}

// SelectCandidates returns the open obligations in a bucket that are past
// their cooldown. Fully waived amounts never remind.
func (d *Dispatcher) SelectCandidates(bucket model.ReminderBucket, today time.Time) ([]Candidate, error) {
	day := dateOnly(today)

	q := d.DB.Model(&obligationModel.FeeStatusModel{}).
		Where("fee_status_state IN ?", []obligationModel.FeeStatusState{
			obligationModel.FeeStatusPending, obligationModel.FeeStatusOverdue,
		})
	switch bucket {
	case model.ReminderBucketOverdue:
		q = q.Where("fee_status_due_date < ?", day)
	case model.ReminderBucketUpcoming:
		window := day.AddDate(0, 0, configs.ReminderWindowDays())
		q = q.Where("fee_status_due_date >= ? AND fee_status_due_date <= ?", day, window)
	default:
		return nil, ErrNotDue
	}

	// Cooldown: skip obligations nudged in this bucket recently.
	cooldown := today.Add(-time.Duration(configs.ReminderCooldownHours()) * time.Hour)
	q = q.Where("fee_status_id NOT IN (?)",
		d.DB.Model(&model.ReminderLogModel{}).
			Select("reminder_log_obligation_id").
			Where("reminder_log_bucket = ? AND reminder_log_status = ? AND reminder_log_created_at > ?",
				bucket, model.ReminderStatusSent, cooldown))

	var obligations []obligationModel.FeeStatusModel
	if err := q.Order("fee_status_due_date").Find(&obligations).Error; err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(obligations))
	for i := range obligations {
		candidate, err := d.enrich(&obligations[i], bucket, today)
		if err != nil {
			return nil, err
		}
		if candidate.EffectiveAmount <= 0 {
			continue
		}
		out = append(out, *candidate)
	}
	return out, nil
}

// Send dispatches one reminder for one obligation. An empty want channel
// auto-resolves along the contact ladder; a named channel is honored when
// a recipient for it exists. The result log row is returned even when
// delivery fails; the failure is recorded, not raised as a rollback.
func (d *Dispatcher) Send(ctx context.Context, obligationID uuid.UUID, bucket model.ReminderBucket, want model.ReminderChannel, today time.Time) (*model.ReminderLogModel, error) {
	var obligation obligationModel.FeeStatusModel
	if err := d.DB.First(&obligation, "fee_status_id = ?", obligationID).Error; err != nil {
		return nil, err
	}
	if !obligation.FeeStatusState.Open() || !inBucket(&obligation, bucket, today) {
		return nil, ErrNotDue
	}

	candidate, err := d.enrich(&obligation, bucket, today)
	if err != nil {
		return nil, err
	}
	if candidate.EffectiveAmount <= 0 {
		return nil, ErrNotDue
	}

	channel, recipient, err := d.resolveRecipient(obligation.FeeStatusStudentID, want)
	if err != nil {
		return nil, err
	}

	subject, body := renderTemplate(candidate, today)

	entry := &model.ReminderLogModel{
		ReminderLogObligationID: obligation.FeeStatusID,
		ReminderLogBucket:       bucket,
		ReminderLogSentOn:       dateOnly(today),
		ReminderLogStudentID:    obligation.FeeStatusStudentID,
		ReminderLogChannel:      channel,
		ReminderLogRecipient:    recipient,
		ReminderLogStatus:       model.ReminderStatusSent,
	}

	var sendErr error
	switch channel {
	case model.ReminderChannelEmail:
		sendErr = d.Email.SendEmail(ctx, recipient, subject, body)
	case model.ReminderChannelSms:
		sendErr = d.Sms.SendSms(ctx, recipient, body)
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.ReminderLogStatus = model.ReminderStatusFailed
		entry.ReminderLogError = &msg
	}

	if err := d.DB.Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyReminded
		}
		return nil, err
	}
	return entry, nil
}

// DispatchDue runs one scheduler tick over both buckets. Failures are
// logged per obligation and never stop the sweep.
func (d *Dispatcher) DispatchDue(ctx context.Context, today time.Time) (sent, failed int) {
	for _, bucket := range []model.ReminderBucket{model.ReminderBucketOverdue, model.ReminderBucketUpcoming} {
		candidates, err := d.SelectCandidates(bucket, today)
		if err != nil {
			log.Printf("[REMINDER] candidate scan failed for %s: %v", bucket, err)
			continue
		}
		for _, candidate := range candidates {
			entry, err := d.Send(ctx, candidate.Obligation.FeeStatusID, bucket, "", today)
			if err != nil {
				if !errors.Is(err, ErrAlreadyReminded) {
					log.Printf("[REMINDER] send failed for %s: %v", candidate.Obligation.FeeStatusID, err)
					failed++
				}
				continue
			}
			if entry.ReminderLogStatus == model.ReminderStatusFailed {
				failed++
			} else {
				sent++
			}
		}
	}
	return sent, failed
}

/* ======================= INTERNAL ======================= */

func (d *Dispatcher) enrich(obligation *obligationModel.FeeStatusModel, bucket model.ReminderBucket, today time.Time) (*Candidate, error) {
	var student studentModel.StudentModel
	if err := d.DB.First(&student, "student_id = ?", obligation.FeeStatusStudentID).Error; err != nil {
		return nil, err
	}
	var structure catalogModel.FeeStructureModel
	if err := d.DB.First(&structure, "fee_structure_id = ?", obligation.FeeStatusFeeStructureID).Error; err != nil {
		return nil, err
	}
	var category catalogModel.FeeCategoryModel
	if err := d.DB.First(&category, "fee_category_id = ?", structure.FeeStructureCategoryID).Error; err != nil {
		return nil, err
	}

	waivers, err := obligationService.ActiveWaivers(d.DB, obligation.FeeStatusStudentID, structure.FeeStructureCategoryID)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Obligation:      *obligation,
		StudentName:     student.StudentName,
		CategoryName:    category.FeeCategoryName,
		EffectiveAmount: obligationService.EffectiveAmount(obligation.FeeStatusAmount, waivers, today),
		Bucket:          bucket,
	}, nil
}

// resolveRecipient walks the contact ladder: the student's own account
// email, then the first parent's phone, then the parent's email, then the
// configured fallback. A non-empty want restricts the ladder to contacts
// reachable over that channel.
func (d *Dispatcher) resolveRecipient(studentID uuid.UUID, want model.ReminderChannel) (model.ReminderChannel, string, error) {
	wantEmail := want == "" || want == model.ReminderChannelEmail
	wantSms := want == "" || want == model.ReminderChannelSms

	if wantEmail {
		var profile userModel.RoleProfileModel
		err := d.DB.Where("role_profile_student_id = ? AND role_profile_role = ?", studentID, constants.RoleStudent).
			First(&profile).Error
		if err == nil {
			var user userModel.UserModel
			if err := d.DB.First(&user, "id = ?", profile.RoleProfileUserID).Error; err == nil && user.Email != "" {
				return model.ReminderChannelEmail, user.Email, nil
			}
		}
	}

	var links []userModel.ParentStudentModel
	if err := d.DB.Where("parent_student_student_id = ?", studentID).
		Order("parent_student_created_at").
		Find(&links).Error; err == nil {
		for _, link := range links {
			var parent userModel.UserModel
			if err := d.DB.First(&parent, "id = ?", link.ParentStudentUserID).Error; err != nil {
				continue
			}
			if wantSms && parent.Phone != nil && *parent.Phone != "" {
				return model.ReminderChannelSms, *parent.Phone, nil
			}
			if wantEmail && parent.Email != "" {
				return model.ReminderChannelEmail, parent.Email, nil
			}
		}
	}

	if wantEmail && configs.FallbackAdminEmail != "" {
		return model.ReminderChannelEmail, configs.FallbackAdminEmail, nil
	}
	if wantSms && configs.FallbackAdminPhone != "" {
		return model.ReminderChannelSms, configs.FallbackAdminPhone, nil
	}
	return "", "", ErrNoRecipient
}

func renderTemplate(c *Candidate, today time.Time) (subject, body string) {
	due := dateOnly(c.Obligation.FeeStatusDueDate)
	dueLabel := due.Format("02 Jan 2006")
	days := int(due.Sub(dateOnly(today)).Hours() / 24)

	if c.Bucket == model.ReminderBucketOverdue {
		subject = fmt.Sprintf("OVERDUE: %s for %s", c.CategoryName, c.StudentName)
		body = fmt.Sprintf(
			"The %s payment of %.2f for %s was due on %s (%d days overdue). Please settle it as soon as possible to avoid further action.",
			c.CategoryName, c.EffectiveAmount, c.StudentName, dueLabel, -days)
		return subject, body
	}
	subject = fmt.Sprintf("Payment reminder: %s for %s", c.CategoryName, c.StudentName)
	body = fmt.Sprintf(
		"A friendly reminder that the %s payment of %.2f for %s is due on %s (in %d days). Thank you for paying on time.",
		c.CategoryName, c.EffectiveAmount, c.StudentName, dueLabel, days)
	return subject, body
}

func inBucket(obligation *obligationModel.FeeStatusModel, bucket model.ReminderBucket, today time.Time) bool {
	day := dateOnly(today)
	due := dateOnly(obligation.FeeStatusDueDate)
	switch bucket {
	case model.ReminderBucketOverdue:
		return due.Before(day)
	case model.ReminderBucketUpcoming:
		window := day.AddDate(0, 0, configs.ReminderWindowDays())
		return !due.Before(day) && !due.After(window)
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
