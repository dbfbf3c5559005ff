// file: internals/features/fees/dashboard/controller/dashboard_controller.go
package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	service "sekolahku_backend/internals/features/fees/dashboard/service"
	helper "sekolahku_backend/internals/helpers"
)

type DashboardController struct {
	DB *gorm.DB
}

func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{DB: db}
}

// GET /dashboard?months=
func (h *DashboardController) Summary(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	months := c.QueryInt("months", 6)
	if months < 1 || months > 24 {
		months = 6
	}

	summary, err := service.BuildSummary(h.DB, scope, time.Now(), months)
	if err != nil {
		log.Printf("[DASHBOARD] summary failed: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not build dashboard")
	}
	return helper.JsonOK(c, "Dashboard summary", summary)
}
