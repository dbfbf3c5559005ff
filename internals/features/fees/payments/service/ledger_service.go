// file: internals/features/fees/payments/service/ledger_service.go
package service

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sekolahku_backend/internals/configs"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	model "sekolahku_backend/internals/features/fees/payments/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
)

var (
	// ErrAmountMismatch: declared amount differs from the effective sum by
	// more than a cent. Nothing is persisted.
	ErrAmountMismatch = errors.New("declared amount does not match the effective amount due")

	// ErrObligationNotOpen: a targeted line is paid, waived or void.
	ErrObligationNotOpen = errors.New("obligation is not open for settlement")

	// ErrCrossStudentSettlement: one payment may only settle lines of a
	// single student.
	ErrCrossStudentSettlement = errors.New("payment lines span more than one student")

	// ErrRaceLost: a concurrent writer settled a targeted line first, or
	// took our receipt sequence. The caller may retry against fresh state.
	ErrRaceLost = errors.New("lost settlement race, retry with fresh state")

	// ErrPaymentNotPending: confirm called on a payment that is not a
	// pending cash payment.
	ErrPaymentNotPending = errors.New("payment is not awaiting cash confirmation")

	// ErrPaymentNotRefundable: refund called on a payment that never
	// completed.
	ErrPaymentNotRefundable = errors.New("only completed payments can be refunded")

	// ErrNothingToSettle: the request named no lines at all.
	ErrNothingToSettle = errors.New("payment settles no lines")
)

// amountTolerance is the accepted rounding drift on money comparisons.
const amountTolerance = 0.01

// clientTokenTTL is the replay window for client idempotency tokens.
const clientTokenTTL = 24 * time.Hour

// cashLapseReason marks cash payments failed by the lapse window, both
// by the sweep and at confirm time.
const cashLapseReason = "cash not received within the confirmation window"

// refundReopenOffset: a reopened obligation gets at least this long to be
// paid again.
const refundReopenOffset = 7 * 24 * time.Hour

// SettleInput is one settlement request against a single student's lines.
type SettleInput struct {
	StudentID        uuid.UUID
	ObligationIDs    []uuid.UUID
	IndividualFeeIDs []uuid.UUID
	DeclaredAmount   float64
	Method           model.PaymentMethod
	ClientToken      *string
	CashierID        *uuid.UUID
	Note             *string
}

// RecordPayment writes one ledger entry for the requested lines.
//
// Online and bank-transfer payments complete immediately: the lines are
// settled and a receipt is issued inside the same transaction. Cash
// payments are recorded pending and settle on ConfirmCash.
//
// Replaying a request with a known client token returns the original
// payment untouched; the second return reports the replay.
func RecordPayment(db *gorm.DB, in SettleInput) (*model.PaymentModel, bool, error) {
	if len(in.ObligationIDs) == 0 && len(in.IndividualFeeIDs) == 0 {
		return nil, false, ErrNothingToSettle
	}
	if !in.Method.Valid() {
		return nil, false, ErrAmountMismatch
	}

	var out *model.PaymentModel
	replay := false

	err := db.Transaction(func(tx *gorm.DB) error {
		if in.ClientToken != nil && *in.ClientToken != "" {
			existing, err := findByClientToken(tx, *in.ClientToken, time.Now())
			if err != nil {
				return err
			}
			if existing != nil {
				out = existing
				replay = true
				return nil
			}
		}

		lines, err := lockAndPriceLines(tx, in.StudentID, in.ObligationIDs, in.IndividualFeeIDs, time.Now())
		if err != nil {
			return err
		}
		if math.Abs(lines.total-in.DeclaredAmount) > amountTolerance {
			return ErrAmountMismatch
		}

		payment := &model.PaymentModel{
			PaymentStudentID:   in.StudentID,
			PaymentMethod:      in.Method,
			PaymentStatus:      model.PaymentStatusPending,
			PaymentGrossAmount: round2(lines.total),
			PaymentClientToken: normalizeToken(in.ClientToken),
			PaymentCashierID:   in.CashierID,
			PaymentNote:        in.Note,
		}

		if in.Method != model.PaymentMethodCash {
			if err := completePayment(tx, payment, lines, time.Now()); err != nil {
				return err
			}
		}

		if err := tx.Create(payment).Error; err != nil {
			return mapUniqueViolation(err)
		}
		if err := createItems(tx, payment.PaymentID, lines); err != nil {
			return err
		}
		if payment.PaymentStatus == model.PaymentStatusCompleted {
			if err := settleLines(tx, payment.PaymentID, lines); err != nil {
				return err
			}
		}

		out = payment
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, replay, nil
}

// ConfirmCash settles a pending cash payment. The lines are re-locked and
// re-priced: if a concurrent payment already settled one of them the
// confirmation fails with ErrRaceLost, and if the waiver landscape moved
// the recorded gross by more than a cent it fails with ErrAmountMismatch.
func ConfirmCash(db *gorm.DB, paymentID uuid.UUID, cashierID *uuid.UUID) (*model.PaymentModel, error) {
	var out *model.PaymentModel
	var lapsedID uuid.UUID

	err := db.Transaction(func(tx *gorm.DB) error {
		payment, items, err := lockPaymentWithItems(tx, paymentID)
		if err != nil {
			return err
		}
		if payment.PaymentMethod != model.PaymentMethodCash {
			return ErrPaymentNotPending
		}
		if payment.PaymentStatus == model.PaymentStatusFailed &&
			payment.PaymentFailedReason != nil && *payment.PaymentFailedReason == cashLapseReason {
			return ErrObligationNotOpen
		}
		if payment.PaymentStatus != model.PaymentStatusPending {
			return ErrPaymentNotPending
		}

		// The lapse window holds even between sweep ticks.
		lapseCutoff := time.Now().AddDate(0, 0, -configs.CashLapseDays())
		if payment.PaymentCreatedAt.Before(lapseCutoff) {
			lapsedID = payment.PaymentID
			return ErrObligationNotOpen
		}

		obligationIDs, individualIDs := splitItemTargets(items)
		lines, err := lockAndPriceLines(tx, payment.PaymentStudentID, obligationIDs, individualIDs, time.Now())
		if err != nil {
			if errors.Is(err, ErrObligationNotOpen) {
				return ErrRaceLost
			}
			return err
		}
		if math.Abs(lines.total-payment.PaymentGrossAmount) > amountTolerance {
			return ErrAmountMismatch
		}

		if cashierID != nil {
			payment.PaymentCashierID = cashierID
		}
		if err := completePayment(tx, payment, lines, time.Now()); err != nil {
			return err
		}
		if err := tx.Model(&model.PaymentModel{}).
			Where("payment_id = ?", payment.PaymentID).
			Updates(map[string]interface{}{
				"payment_status":         payment.PaymentStatus,
				"payment_received_on":    payment.PaymentReceivedOn,
				"payment_receipt_seq":    payment.PaymentReceiptSeq,
				"payment_receipt_number": payment.PaymentReceiptNumber,
				"payment_cashier_id":     payment.PaymentCashierID,
			}).Error; err != nil {
			return mapUniqueViolation(err)
		}
		if err := settleLines(tx, payment.PaymentID, lines); err != nil {
			return err
		}

		out = payment
		return nil
	})
	if err != nil {
		// A stale payment fails outside the rolled-back confirmation.
		if lapsedID != uuid.Nil {
			db.Model(&model.PaymentModel{}).
				Where("payment_id = ? AND payment_status = ?", lapsedID, model.PaymentStatusPending).
				Updates(map[string]interface{}{
					"payment_status":        model.PaymentStatusFailed,
					"payment_failed_reason": cashLapseReason,
				})
		}
		return nil, err
	}
	return out, nil
}

// Refund reverses a completed payment. The payment row flips to refunded
// and keeps its receipt; every settled obligation reopens as pending with
// its due date pushed to at least a week out so the reopened debt is not
// instantly overdue.
func Refund(db *gorm.DB, paymentID uuid.UUID, actorID *uuid.UUID, reason string) (*model.PaymentModel, error) {
	var out *model.PaymentModel

	err := db.Transaction(func(tx *gorm.DB) error {
		payment, items, err := lockPaymentWithItems(tx, paymentID)
		if err != nil {
			return err
		}
		if payment.PaymentStatus != model.PaymentStatusCompleted {
			return ErrPaymentNotRefundable
		}

		today := dateOnly(time.Now())
		floor := today.Add(refundReopenOffset)

		for _, item := range items {
			if item.PaymentItemFeeStatusID != nil {
				var ob obligationModel.FeeStatusModel
				if err := forUpdate(tx).
					First(&ob, "fee_status_id = ?", *item.PaymentItemFeeStatusID).Error; err != nil {
					return err
				}
				// Only lines still settled by this payment reopen.
				if ob.FeeStatusSettledPaymentID == nil || *ob.FeeStatusSettledPaymentID != payment.PaymentID {
					return ErrPaymentNotRefundable
				}
				due := ob.FeeStatusDueDate
				if floor.After(due) {
					due = floor
				}
				if err := tx.Model(&obligationModel.FeeStatusModel{}).
					Where("fee_status_id = ?", ob.FeeStatusID).
					Updates(map[string]interface{}{
						"fee_status_state":              obligationModel.FeeStatusPending,
						"fee_status_settled_payment_id": nil,
						"fee_status_due_date":           due,
					}).Error; err != nil {
					return err
				}
			}
			if item.PaymentItemIndividualFeeID != nil {
				if err := tx.Model(&obligationModel.IndividualFeeModel{}).
					Where("individual_fee_id = ?", *item.PaymentItemIndividualFeeID).
					Update("individual_fee_is_paid", false).Error; err != nil {
					return err
				}
			}
		}

		updates := map[string]interface{}{
			"payment_status":        model.PaymentStatusRefunded,
			"payment_refund_reason": reason,
		}
		if actorID != nil {
			updates["payment_cashier_id"] = *actorID
		}
		if err := tx.Model(&model.PaymentModel{}).
			Where("payment_id = ?", payment.PaymentID).
			Updates(updates).Error; err != nil {
			return err
		}

		payment.PaymentStatus = model.PaymentStatusRefunded
		payment.PaymentRefundReason = &reason
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RejectCash fails a pending cash payment by hand, before any money moved.
// The targeted lines were never settled, so only the payment row changes.
func RejectCash(db *gorm.DB, paymentID uuid.UUID, actorID *uuid.UUID, reason string) (*model.PaymentModel, error) {
	var out *model.PaymentModel

	err := db.Transaction(func(tx *gorm.DB) error {
		payment, _, err := lockPaymentWithItems(tx, paymentID)
		if err != nil {
			return err
		}
		if payment.PaymentMethod != model.PaymentMethodCash ||
			payment.PaymentStatus != model.PaymentStatusPending {
			return ErrPaymentNotPending
		}

		updates := map[string]interface{}{
			"payment_status":        model.PaymentStatusFailed,
			"payment_failed_reason": reason,
		}
		if actorID != nil {
			updates["payment_cashier_id"] = *actorID
		}
		if err := tx.Model(&model.PaymentModel{}).
			Where("payment_id = ?", payment.PaymentID).
			Updates(updates).Error; err != nil {
			return err
		}

		payment.PaymentStatus = model.PaymentStatusFailed
		payment.PaymentFailedReason = &reason
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LapseStaleCash fails pending cash payments older than the lapse window.
// The targeted obligations were never settled, so nothing is reverted
// beyond the payment row itself.
func LapseStaleCash(db *gorm.DB, now time.Time, lapseDays int) (int64, error) {
	cutoff := now.AddDate(0, 0, -lapseDays)
	reason := cashLapseReason
	res := db.Model(&model.PaymentModel{}).
		Where("payment_method = ? AND payment_status = ? AND payment_created_at < ?",
			model.PaymentMethodCash, model.PaymentStatusPending, cutoff).
		Updates(map[string]interface{}{
			"payment_status":        model.PaymentStatusFailed,
			"payment_failed_reason": reason,
		})
	return res.RowsAffected, res.Error
}

// ClearStaleClientTokens drops idempotency tokens outside the replay
// window so clients can reuse them.
func ClearStaleClientTokens(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&model.PaymentModel{}).
		Where("payment_client_token IS NOT NULL AND payment_created_at < ?", now.Add(-clientTokenTTL)).
		Update("payment_client_token", nil)
	return res.RowsAffected, res.Error
}

/* =======================================================
   INTERNALS
   ======================================================= */

// pricedLine is one lockable line with its effective amount captured.
type pricedLine struct {
	feeStatusID     *uuid.UUID
	individualFeeID *uuid.UUID
	amount          float64
}

type pricedLines struct {
	lines []pricedLine
	total float64
}

// lockAndPriceLines locks the student, the involved structures and the
// targeted lines in that fixed order, validates that every line is open
// and belongs to the student, and prices each line at its effective
// amount as of today.
func lockAndPriceLines(tx *gorm.DB, studentID uuid.UUID, obligationIDs, individualIDs []uuid.UUID, today time.Time) (*pricedLines, error) {
	var student studentModel.StudentModel
	if err := forUpdate(tx).First(&student, "student_id = ?", studentID).Error; err != nil {
		return nil, err
	}

	// Peek without locks to learn the structure set, then lock structures
	// before obligations to keep the global lock order.
	var peek []obligationModel.FeeStatusModel
	if len(obligationIDs) > 0 {
		if err := tx.Where("fee_status_id IN ?", obligationIDs).Find(&peek).Error; err != nil {
			return nil, err
		}
		if len(peek) != len(dedupe(obligationIDs)) {
			return nil, gorm.ErrRecordNotFound
		}
	}

	structureIDs := make([]uuid.UUID, 0, len(peek))
	for _, ob := range peek {
		structureIDs = append(structureIDs, ob.FeeStatusFeeStructureID)
	}
	structures := map[uuid.UUID]catalogModel.FeeStructureModel{}
	if len(structureIDs) > 0 {
		var rows []catalogModel.FeeStructureModel
		if err := forUpdate(tx).
			Where("fee_structure_id IN ?", dedupe(structureIDs)).
			Order("fee_structure_id").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, s := range rows {
			structures[s.FeeStructureID] = s
		}
	}

	out := &pricedLines{}
	waiverCache := map[uuid.UUID][]catalogModel.FeeWaiverModel{}

	if len(obligationIDs) > 0 {
		var obligations []obligationModel.FeeStatusModel
		if err := forUpdate(tx).
			Where("fee_status_id IN ?", obligationIDs).
			Order("fee_status_id").
			Find(&obligations).Error; err != nil {
			return nil, err
		}
		for i := range obligations {
			ob := obligations[i]
			if ob.FeeStatusStudentID != studentID {
				return nil, ErrCrossStudentSettlement
			}
			if !ob.FeeStatusState.Open() {
				return nil, ErrObligationNotOpen
			}
			structure, ok := structures[ob.FeeStatusFeeStructureID]
			if !ok {
				return nil, gorm.ErrRecordNotFound
			}

			waivers, cached := waiverCache[structure.FeeStructureCategoryID]
			if !cached {
				loaded, err := obligationService.ActiveWaivers(tx, studentID, structure.FeeStructureCategoryID)
				if err != nil {
					return nil, err
				}
				waiverCache[structure.FeeStructureCategoryID] = loaded
				waivers = loaded
			}

			amount := obligationService.EffectiveAmount(ob.FeeStatusAmount, waivers, today)
			id := ob.FeeStatusID
			out.lines = append(out.lines, pricedLine{feeStatusID: &id, amount: amount})
			out.total += amount
		}
	}

	if len(individualIDs) > 0 {
		var fees []obligationModel.IndividualFeeModel
		if err := forUpdate(tx).
			Where("individual_fee_id IN ?", individualIDs).
			Order("individual_fee_id").
			Find(&fees).Error; err != nil {
			return nil, err
		}
		if len(fees) != len(dedupe(individualIDs)) {
			return nil, gorm.ErrRecordNotFound
		}
		for i := range fees {
			fee := fees[i]
			if fee.IndividualFeeStudentID != studentID {
				return nil, ErrCrossStudentSettlement
			}
			if fee.IndividualFeeIsPaid || !fee.IndividualFeeIsActive {
				return nil, ErrObligationNotOpen
			}
			id := fee.IndividualFeeID
			out.lines = append(out.lines, pricedLine{individualFeeID: &id, amount: fee.IndividualFeeAmount})
			out.total += fee.IndividualFeeAmount
		}
	}

	out.total = round2(out.total)
	return out, nil
}

// completePayment stamps completion fields and assigns the next receipt
// number. The unique receipt index backstops concurrent assignment.
func completePayment(tx *gorm.DB, payment *model.PaymentModel, lines *pricedLines, now time.Time) error {
	seq, err := nextReceiptSeq(tx)
	if err != nil {
		return err
	}
	receivedOn := dateOnly(now)
	number := model.FormatReceiptNumber(seq)

	payment.PaymentStatus = model.PaymentStatusCompleted
	payment.PaymentReceivedOn = &receivedOn
	payment.PaymentReceiptSeq = &seq
	payment.PaymentReceiptNumber = &number
	payment.PaymentGrossAmount = round2(lines.total)
	return nil
}

func createItems(tx *gorm.DB, paymentID uuid.UUID, lines *pricedLines) error {
	for _, line := range lines.lines {
		item := model.PaymentItemModel{
			PaymentItemPaymentID:       paymentID,
			PaymentItemFeeStatusID:     line.feeStatusID,
			PaymentItemIndividualFeeID: line.individualFeeID,
			PaymentItemAmount:          round2(line.amount),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}

// settleLines marks every priced line settled by the payment.
func settleLines(tx *gorm.DB, paymentID uuid.UUID, lines *pricedLines) error {
	for _, line := range lines.lines {
		if line.feeStatusID != nil {
			res := tx.Model(&obligationModel.FeeStatusModel{}).
				Where("fee_status_id = ? AND fee_status_state IN ?", *line.feeStatusID,
					[]obligationModel.FeeStatusState{obligationModel.FeeStatusPending, obligationModel.FeeStatusOverdue}).
				Updates(map[string]interface{}{
					"fee_status_state":              obligationModel.FeeStatusPaid,
					"fee_status_settled_payment_id": paymentID,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrRaceLost
			}
		}
		if line.individualFeeID != nil {
			res := tx.Model(&obligationModel.IndividualFeeModel{}).
				Where("individual_fee_id = ? AND individual_fee_is_paid = ?", *line.individualFeeID, false).
				Update("individual_fee_is_paid", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrRaceLost
			}
		}
	}
	return nil
}

func lockPaymentWithItems(tx *gorm.DB, paymentID uuid.UUID) (*model.PaymentModel, []model.PaymentItemModel, error) {
	var payment model.PaymentModel
	if err := forUpdate(tx).First(&payment, "payment_id = ?", paymentID).Error; err != nil {
		return nil, nil, err
	}
	var items []model.PaymentItemModel
	if err := tx.Where("payment_item_payment_id = ?", paymentID).
		Order("payment_item_created_at").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &payment, items, nil
}

// normalizeToken stores absent and blank tokens as NULL so the unique
// index never trips on empty strings.
func normalizeToken(token *string) *string {
	if token == nil || *token == "" {
		return nil
	}
	return token
}

// findByClientToken returns the payment holding the token when it is
// still inside the replay window. An expired token is released on the
// old row so the retry books a fresh payment.
func findByClientToken(tx *gorm.DB, token string, now time.Time) (*model.PaymentModel, error) {
	var existing model.PaymentModel
	err := tx.Where("payment_client_token = ?", token).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.PaymentCreatedAt.Before(now.Add(-clientTokenTTL)) {
		if err := tx.Model(&model.PaymentModel{}).
			Where("payment_id = ?", existing.PaymentID).
			Update("payment_client_token", nil).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &existing, nil
}

func splitItemTargets(items []model.PaymentItemModel) (obligations, individuals []uuid.UUID) {
	for _, item := range items {
		if item.PaymentItemFeeStatusID != nil {
			obligations = append(obligations, *item.PaymentItemFeeStatusID)
		}
		if item.PaymentItemIndividualFeeID != nil {
			individuals = append(individuals, *item.PaymentItemIndividualFeeID)
		}
	}
	return
}

func nextReceiptSeq(tx *gorm.DB) (int, error) {
	var max *int
	if err := tx.Model(&model.PaymentModel{}).
		Select("MAX(payment_receipt_seq)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// mapUniqueViolation converts a duplicate-key error into ErrRaceLost: a
// concurrent writer took our receipt sequence or client token first.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrRaceLost
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrRaceLost
	}
	return err
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].String(), out[j].String()) < 0
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
