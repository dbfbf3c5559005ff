// file: internals/features/fees/dashboard/service/dashboard_service.go
package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	paymentModel "sekolahku_backend/internals/features/fees/payments/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

// Summary is the scoped collection overview. Every figure is computed
// against the caller's scope only; two admins with different reaches see
// different numbers from the same ledger.
type Summary struct {
	ExpectedTotal    float64 `json:"expected_total"`
	CollectedTotal   float64 `json:"collected_total"`
	OutstandingTotal float64 `json:"outstanding_total"`
	// AchievementPct = collected / expected, clamped to [0, 100].
	AchievementPct float64 `json:"achievement_pct"`

	StudentCount int `json:"student_count"`
	OverdueCount int `json:"overdue_count"`

	PerLevel []LevelBreakdown `json:"per_level"`
	PerClass []ClassBreakdown `json:"per_class"`
	Monthly  []MonthlyPoint   `json:"monthly_collected"`
}

type LevelBreakdown struct {
	Level        string  `json:"level"`
	StudentCount int     `json:"student_count"`
	Expected     float64 `json:"expected"`
	Outstanding  float64 `json:"outstanding"`
}

type ClassBreakdown struct {
	Level        string `json:"level"`
	Class        string `json:"class"`
	StudentCount int    `json:"student_count"`
}

type MonthlyPoint struct {
	Month     string  `json:"month"`
	Collected float64 `json:"collected"`
}

// BuildSummary computes the dashboard for one scope as of now.
func BuildSummary(db *gorm.DB, scope helper.Scope, now time.Time, months int) (*Summary, error) {
	if months <= 0 {
		months = 6
	}

	var students []studentModel.StudentModel
	if err := scope.ApplyToStudents(db.Where("student_is_active = TRUE")).
		Find(&students).Error; err != nil {
		return nil, err
	}

	summary := &Summary{StudentCount: len(students)}
	if len(students) == 0 {
		summary.Monthly = emptySeries(now, months)
		return summary, nil
	}

	studentIDs := make([]uuid.UUID, 0, len(students))
	levelCounts := map[string]int{}
	classCounts := map[[2]string]int{}
	for _, s := range students {
		studentIDs = append(studentIDs, s.StudentID)
		levelCounts[s.StudentLevel]++
		if s.StudentClass != nil {
			classCounts[[2]string{s.StudentLevel, *s.StudentClass}]++
		}
	}

	// Expected: every active structure contributes its per-student total
	// for each scoped student at its level.
	var structures []catalogModel.FeeStructureModel
	if err := db.Where("fee_structure_is_active = TRUE").Find(&structures).Error; err != nil {
		return nil, err
	}
	expectedPerLevel := map[string]float64{}
	for _, structure := range structures {
		count := levelCounts[helper.CanonicalLevel(structure.FeeStructureLevel)]
		if count == 0 {
			continue
		}
		contribution := structure.ExpectedTotal() * float64(count)
		expectedPerLevel[structure.FeeStructureLevel] += contribution
		summary.ExpectedTotal += contribution
	}

	// Collected: completed payments only; refunds have left this state.
	if err := db.Model(&paymentModel.PaymentModel{}).
		Where("payment_student_id IN ? AND payment_status = ?", studentIDs, paymentModel.PaymentStatusCompleted).
		Select("COALESCE(SUM(payment_gross_amount), 0)").
		Scan(&summary.CollectedTotal).Error; err != nil {
		return nil, err
	}

	// Outstanding: open obligations priced at their effective amounts.
	var open []obligationModel.FeeStatusModel
	if err := db.Where("fee_status_student_id IN ? AND fee_status_state IN ?", studentIDs,
		[]obligationModel.FeeStatusState{obligationModel.FeeStatusPending, obligationModel.FeeStatusOverdue}).
		Find(&open).Error; err != nil {
		return nil, err
	}

	structureByID := map[uuid.UUID]catalogModel.FeeStructureModel{}
	for _, s := range structures {
		structureByID[s.FeeStructureID] = s
	}
	// Inactive structures still back open obligations.
	missing := []uuid.UUID{}
	for _, ob := range open {
		if _, ok := structureByID[ob.FeeStatusFeeStructureID]; !ok {
			missing = append(missing, ob.FeeStatusFeeStructureID)
		}
	}
	if len(missing) > 0 {
		var rest []catalogModel.FeeStructureModel
		if err := db.Where("fee_structure_id IN ?", missing).Find(&rest).Error; err != nil {
			return nil, err
		}
		for _, s := range rest {
			structureByID[s.FeeStructureID] = s
		}
	}

	type waiverKey struct {
		student  uuid.UUID
		category uuid.UUID
	}
	waiverCache := map[waiverKey][]catalogModel.FeeWaiverModel{}
	outstandingPerLevel := map[string]float64{}

	for _, ob := range open {
		structure, ok := structureByID[ob.FeeStatusFeeStructureID]
		if !ok {
			continue
		}
		key := waiverKey{student: ob.FeeStatusStudentID, category: structure.FeeStructureCategoryID}
		waivers, cached := waiverCache[key]
		if !cached {
			loaded, err := obligationService.ActiveWaivers(db, key.student, key.category)
			if err != nil {
				return nil, err
			}
			waiverCache[key] = loaded
			waivers = loaded
		}
		effective := obligationService.EffectiveAmount(ob.FeeStatusAmount, waivers, now)
		summary.OutstandingTotal += effective
		outstandingPerLevel[structure.FeeStructureLevel] += effective
		if ob.IsOverdue(now) {
			summary.OverdueCount++
		}
	}

	summary.ExpectedTotal = round2(summary.ExpectedTotal)
	summary.CollectedTotal = round2(summary.CollectedTotal)
	summary.OutstandingTotal = round2(summary.OutstandingTotal)
	summary.AchievementPct = achievement(summary.CollectedTotal, summary.ExpectedTotal)

	for _, level := range helper.AllLevels() {
		if levelCounts[level] == 0 && expectedPerLevel[level] == 0 {
			continue
		}
		summary.PerLevel = append(summary.PerLevel, LevelBreakdown{
			Level:        level,
			StudentCount: levelCounts[level],
			Expected:     round2(expectedPerLevel[level]),
			Outstanding:  round2(outstandingPerLevel[level]),
		})
	}
	for key, count := range classCounts {
		summary.PerClass = append(summary.PerClass, ClassBreakdown{
			Level:        key[0],
			Class:        key[1],
			StudentCount: count,
		})
	}
	sort.Slice(summary.PerClass, func(i, j int) bool {
		if summary.PerClass[i].Level != summary.PerClass[j].Level {
			return summary.PerClass[i].Level < summary.PerClass[j].Level
		}
		return summary.PerClass[i].Class < summary.PerClass[j].Class
	})

	series, err := monthlySeries(db, studentIDs, now, months)
	if err != nil {
		return nil, err
	}
	summary.Monthly = series
	return summary, nil
}

/* ======================= INTERNAL ======================= */

// achievement clamps collected/expected to a percentage with one decimal.
// Zero expected reads as zero, not a division blow-up.
func achievement(collected, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	pct := 100 * collected / expected
	if pct > 100 {
		return 100
	}
	return math.Round(pct*10) / 10
}

// monthlySeries buckets completed payments by calendar month of receipt.
func monthlySeries(db *gorm.DB, studentIDs []uuid.UUID, now time.Time, months int) ([]MonthlyPoint, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	var payments []paymentModel.PaymentModel
	if err := db.Where("payment_student_id IN ? AND payment_status = ? AND payment_received_on >= ?",
		studentIDs, paymentModel.PaymentStatusCompleted, start).
		Find(&payments).Error; err != nil {
		return nil, err
	}

	byMonth := map[string]float64{}
	for _, p := range payments {
		if p.PaymentReceivedOn == nil {
			continue
		}
		byMonth[p.PaymentReceivedOn.Format("2006-01")] += p.PaymentGrossAmount
	}

	out := emptySeries(now, months)
	for i := range out {
		out[i].Collected = round2(byMonth[out[i].Month])
	}
	return out, nil
}

func emptySeries(now time.Time, months int) []MonthlyPoint {
	out := make([]MonthlyPoint, 0, months)
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	for i := 0; i < months; i++ {
		out = append(out, MonthlyPoint{Month: cursor.Format("2006-01")})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
