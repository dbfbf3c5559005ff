// file: internals/helpers/json_response.go
package helper

import (
	"reflect"
	"strings"

	"github.com/gofiber/fiber/v2"
)

/* ===============================
   Pagination type & defaults
=================================*/

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
	Count      int   `json:"count"`
}

func BuildPagination(total int64, page, perPage int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage)) // ceil
	if totalPages == 0 {
		totalPages = 1
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func lenOf(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}

/* ===============================
   Error kinds (stable identifiers)
=================================*/

const (
	KindUnauthenticated          = "UNAUTHENTICATED"
	KindForbidden                = "FORBIDDEN"
	KindValidationError          = "VALIDATION_ERROR"
	KindNotFound                 = "NOT_FOUND"
	KindConflictingMonthlyPlan   = "CONFLICTING_MONTHLY_PLAN"
	KindDuplicateActiveStructure = "DUPLICATE_ACTIVE_STRUCTURE"
	KindAmountMismatch           = "AMOUNT_MISMATCH"
	KindObligationNotOpen        = "OBLIGATION_NOT_OPEN"
	KindCrossStudentSettlement   = "CROSS_STUDENT_SETTLEMENT"
	KindRaceLost                 = "RACE_LOST"
	KindInvariantViolation       = "INVARIANT_VIOLATION"
	KindNotificationFailed       = "NOTIFICATION_FAILED"
	KindInternal                 = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Kind    string              `json:"kind,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func statusToKind(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return KindUnauthenticated
	case fiber.StatusForbidden:
		return KindForbidden
	case fiber.StatusNotFound:
		return KindNotFound
	case fiber.StatusUnprocessableEntity:
		return KindValidationError
	default:
		if status >= 500 {
			return KindInternal
		}
		return KindValidationError
	}
}

// JsonError: generic error with a kind derived from the status.
func JsonError(c *fiber.Ctx, status int, message string) error {
	return JsonErrorKind(c, status, statusToKind(status), message)
}

// JsonErrorKind: error with an explicit machine-readable kind string.
func JsonErrorKind(c *fiber.Ctx, status int, kind, message string) error {
	if strings.TrimSpace(message) == "" {
		message = fiber.ErrInternalServerError.Message
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Message: message,
		Kind:    kind,
	})
}

// JsonValidationError: field-level validation failure (422).
func JsonValidationError(c *fiber.Ctx, fieldErrors map[string][]string) error {
	if fieldErrors == nil {
		fieldErrors = map[string][]string{}
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Message: "validation failed",
		Kind:    KindValidationError,
		Details: fieldErrors,
	})
}

/* ===============================
   JSON responses (standard success)
=================================*/

// JsonList: list with pagination.
func JsonList(c *fiber.Ctx, message string, data any, pagination any) error {
	if strings.TrimSpace(message) == "" {
		message = "ok"
	}
	body := fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	}
	if p, ok := pagination.(Pagination); ok {
		if p.Count == 0 {
			p.Count = lenOf(data)
		}
		body["pagination"] = p
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func JsonOK(c *fiber.Ctx, message string, data any) error {
	if strings.TrimSpace(message) == "" {
		message = "ok"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JsonCreated(c *fiber.Ctx, message string, data any) error {
	if strings.TrimSpace(message) == "" {
		message = "created"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JsonUpdated(c *fiber.Ctx, message string, data any) error {
	if strings.TrimSpace(message) == "" {
		message = "updated"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JsonDeleted(c *fiber.Ctx, message string, data any) error {
	if strings.TrimSpace(message) == "" {
		message = "deleted"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}
