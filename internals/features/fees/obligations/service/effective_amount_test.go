// file: internals/features/fees/obligations/service/effective_amount_test.go
package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
)

func approvedPct(pct float64, created time.Time) catalogModel.FeeWaiverModel {
	return catalogModel.FeeWaiverModel{
		FeeWaiverType:       catalogModel.WaiverTypeDiscount,
		FeeWaiverPercentage: &pct,
		FeeWaiverStatus:     catalogModel.WaiverStatusApproved,
		FeeWaiverStartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FeeWaiverEndDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		FeeWaiverCreatedAt:  created,
	}
}

func approvedFixed(amount float64, created time.Time) catalogModel.FeeWaiverModel {
	return catalogModel.FeeWaiverModel{
		FeeWaiverType:        catalogModel.WaiverTypeScholarship,
		FeeWaiverFixedAmount: amount,
		FeeWaiverStatus:      catalogModel.WaiverStatusApproved,
		FeeWaiverStartDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FeeWaiverEndDate:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		FeeWaiverCreatedAt:   created,
	}
}

func TestEffectiveAmountStacking(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Percentages deduct against the face, then fixed amounts stack.
	waivers := []catalogModel.FeeWaiverModel{
		approvedPct(20, created),
		approvedPct(10, created.Add(time.Hour)),
		approvedFixed(50, created.Add(2*time.Hour)),
	}
	assert.InDelta(t, 650.0, EffectiveAmount(1000, waivers, today), 0.001)

	waivers = []catalogModel.FeeWaiverModel{
		approvedPct(25, created),
		approvedFixed(500, created.Add(time.Hour)),
	}
	assert.InDelta(t, 1750.0, EffectiveAmount(3000, waivers, today), 0.001)
}

func TestEffectiveAmountOrderIndependent(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	forward := []catalogModel.FeeWaiverModel{
		approvedPct(20, created),
		approvedFixed(50, created.Add(time.Hour)),
		approvedPct(10, created.Add(2*time.Hour)),
	}
	backward := []catalogModel.FeeWaiverModel{forward[2], forward[1], forward[0]}
	assert.Equal(t, EffectiveAmount(1000, forward, today), EffectiveAmount(1000, backward, today))
}

func TestEffectiveAmountFloorsAtZero(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	waivers := []catalogModel.FeeWaiverModel{approvedFixed(250, created)}
	assert.Zero(t, EffectiveAmount(100, waivers, today))

	full := approvedPct(100, created)
	full.FeeWaiverType = catalogModel.WaiverTypeFullWaiver
	assert.Zero(t, EffectiveAmount(1000, []catalogModel.FeeWaiverModel{full}, today))
}

func TestEffectiveAmountIgnoresInactiveWaivers(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	pending := approvedPct(50, created)
	pending.FeeWaiverStatus = catalogModel.WaiverStatusPending

	expired := approvedPct(50, created)
	expired.FeeWaiverEndDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	notYet := approvedPct(50, created)
	notYet.FeeWaiverStartDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	waivers := []catalogModel.FeeWaiverModel{pending, expired, notYet}
	assert.InDelta(t, 1000.0, EffectiveAmount(1000, waivers, today), 0.001)
}
