// file: internals/features/fees/reminders/controller/reminder_controller.go
package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	model "sekolahku_backend/internals/features/fees/reminders/model"
	service "sekolahku_backend/internals/features/fees/reminders/service"
	helper "sekolahku_backend/internals/helpers"
)

type ReminderController struct {
	DB         *gorm.DB
	Dispatcher *service.Dispatcher
}

func NewReminderController(db *gorm.DB) *ReminderController {
	return &ReminderController{DB: db, Dispatcher: service.NewDispatcher(db)}
}

/* ======================= READS ======================= */
// GET /reminders?bucket=
func (h *ReminderController) ListCandidates(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage reminders")
	}

	bucket := model.ReminderBucket(c.Query("bucket", string(model.ReminderBucketOverdue)))
	if !bucket.Valid() {
		return helper.JsonError(c, fiber.StatusBadRequest, "Unknown reminder bucket")
	}

	candidates, err := h.Dispatcher.SelectCandidates(bucket, time.Now())
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not scan reminder candidates")
	}
	return helper.JsonOK(c, "Reminder candidates fetched", candidates)
}

// GET /reminders/log?student_id=
func (h *ReminderController) ListLog(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage reminders")
	}

	q := h.DB.Model(&model.ReminderLogModel{})
	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
		}
		q = q.Where("reminder_log_student_id = ?", id)
	}

	var entries []model.ReminderLogModel
	if err := q.Order("reminder_log_created_at DESC").Limit(200).Find(&entries).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list reminder log")
	}
	return helper.JsonOK(c, "Reminder log fetched", entries)
}

/* ======================= SEND ======================= */
// POST /reminders/:obligation_id/send?bucket=
func (h *ReminderController) Send(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to send reminders")
	}

	obligationID, err := uuid.Parse(c.Params("obligation_id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid obligation id")
	}
	bucket := model.ReminderBucket(c.Query("bucket", string(model.ReminderBucketOverdue)))
	if !bucket.Valid() {
		return helper.JsonError(c, fiber.StatusBadRequest, "Unknown reminder bucket")
	}

	// Optional body: {"channel": "email"|"sms"}. Absent means auto.
	var req struct {
		Channel string `json:"channel"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
		}
	}
	channel := model.ReminderChannel(req.Channel)
	if channel != "" && channel != model.ReminderChannelEmail && channel != model.ReminderChannelSms {
		return helper.JsonError(c, fiber.StatusBadRequest, "Unknown reminder channel")
	}

	entry, err := h.Dispatcher.Send(c.Context(), obligationID, bucket, channel, time.Now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Obligation not found")
	case errors.Is(err, service.ErrNotDue):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrAlreadyReminded):
		return helper.JsonOK(c, "Reminder already sent today", fiber.Map{"obligation_id": obligationID})
	case errors.Is(err, service.ErrNoRecipient):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not send reminder")
	}

	// A provider rejection is reported in-band: the attempt is logged and
	// the obligation stays eligible for a retry after the cooldown.
	if entry.ReminderLogStatus == model.ReminderStatusFailed {
		return helper.JsonErrorKind(c, fiber.StatusOK, helper.KindNotificationFailed, "Reminder could not be delivered")
	}
	return helper.JsonOK(c, "Reminder sent", entry)
}
