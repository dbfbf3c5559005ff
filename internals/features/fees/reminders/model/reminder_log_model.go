// file: internals/features/fees/reminders/model/reminder_log_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ======= ENUMS ======= */

type ReminderBucket string

const (
	// Upcoming: due within the reminder window, gently worded.
	ReminderBucketUpcoming ReminderBucket = "upcoming"
	// Overdue: past due, urgently worded.
	ReminderBucketOverdue ReminderBucket = "overdue"
)

func (b ReminderBucket) Valid() bool {
	return b == ReminderBucketUpcoming || b == ReminderBucketOverdue
}

type ReminderChannel string

const (
	ReminderChannelEmail ReminderChannel = "email"
	ReminderChannelSms   ReminderChannel = "sms"
)

type ReminderStatus string

const (
	ReminderStatusSent   ReminderStatus = "sent"
	ReminderStatusFailed ReminderStatus = "failed"
)

/* ======= MODEL ======= */

// ReminderLogModel records one dispatch attempt. The unique index makes a
// same-day resend of the same bucket for the same obligation a no-op at
// the database level.
type ReminderLogModel struct {
	ReminderLogID uuid.UUID `gorm:"column:reminder_log_id;type:uuid;primaryKey" json:"reminder_log_id"`

	ReminderLogObligationID uuid.UUID      `gorm:"column:reminder_log_obligation_id;type:uuid;not null;index;uniqueIndex:uniq_obligation_bucket_day,priority:1" json:"reminder_log_obligation_id"`
	ReminderLogBucket       ReminderBucket `gorm:"column:reminder_log_bucket;type:varchar(10);not null;uniqueIndex:uniq_obligation_bucket_day,priority:2" json:"reminder_log_bucket"`
	ReminderLogSentOn       time.Time      `gorm:"column:reminder_log_sent_on;type:date;not null;uniqueIndex:uniq_obligation_bucket_day,priority:3" json:"reminder_log_sent_on"`

	ReminderLogStudentID uuid.UUID       `gorm:"column:reminder_log_student_id;type:uuid;not null;index" json:"reminder_log_student_id"`
	ReminderLogChannel   ReminderChannel `gorm:"column:reminder_log_channel;type:varchar(10);not null" json:"reminder_log_channel"`
	ReminderLogRecipient string          `gorm:"column:reminder_log_recipient;type:varchar(255);not null" json:"reminder_log_recipient"`
	ReminderLogStatus    ReminderStatus  `gorm:"column:reminder_log_status;type:varchar(10);not null" json:"reminder_log_status"`
	ReminderLogError     *string         `gorm:"column:reminder_log_error;type:text" json:"reminder_log_error,omitempty"`

	ReminderLogCreatedAt time.Time `gorm:"column:reminder_log_created_at;autoCreateTime" json:"reminder_log_created_at"`
}

func (ReminderLogModel) TableName() string {
	return "reminder_logs"
}

func (m *ReminderLogModel) BeforeCreate(tx *gorm.DB) error {
	if m.ReminderLogID == uuid.Nil {
		m.ReminderLogID = uuid.New()
	}
	return nil
}
