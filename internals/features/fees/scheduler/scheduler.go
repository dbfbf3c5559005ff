// file: internals/features/fees/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	catalogService "sekolahku_backend/internals/features/fees/catalog/service"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	paymentService "sekolahku_backend/internals/features/fees/payments/service"
	reminderService "sekolahku_backend/internals/features/fees/reminders/service"
)

// StartFeeSweeps runs the daily maintenance pass in the background: the
// overdue sweep, cash lapse, token cleanup, waiver expiry and the
// reminder dispatch. Every step is idempotent, so a missed or doubled
// tick is harmless.
func StartFeeSweeps(db *gorm.DB) {
	go func() {
		// One pass at boot picks up anything missed while down.
		runSweeps(db)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			runSweeps(db)
		}
	}()
}

func runSweeps(db *gorm.DB) {
	now := time.Now()

	if n, err := obligationService.PersistOverdue(db, now); err != nil {
		log.Printf("[SWEEP] overdue sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("[SWEEP] marked %d obligations overdue", n)
	}

	if n, err := paymentService.LapseStaleCash(db, now, configs.CashLapseDays()); err != nil {
		log.Printf("[SWEEP] cash lapse failed: %v", err)
	} else if n > 0 {
		log.Printf("[SWEEP] lapsed %d unconfirmed cash payments", n)
	}

	if _, err := paymentService.ClearStaleClientTokens(db, now); err != nil {
		log.Printf("[SWEEP] token cleanup failed: %v", err)
	}

	if n, err := catalogService.ExpireWaivers(db, now); err != nil {
		log.Printf("[SWEEP] waiver expiry failed: %v", err)
	} else if n > 0 {
		log.Printf("[SWEEP] expired %d waivers", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	dispatcher := reminderService.NewDispatcher(db)
	sent, failed := dispatcher.DispatchDue(ctx, now)
	if sent > 0 || failed > 0 {
		log.Printf("[SWEEP] reminders sent=%d failed=%d", sent, failed)
	}
}
