// Package ledger implements payment bookkeeping over orders. All
// functions are pure: they derive paid/due/status from totals instead of
// patching previous values, so replaying the same payments always lands
// on the same state.
package ledger

import (
	"errors"
	"sort"
	"time"

	"davakart/backend/internal/domain"
)

var ErrInvalidAmount = errors.New("invalid payment amount")

// DeriveStatus maps order totals to a payment status. Due is clamped at
// zero first, so an over-collected order still reads Paid.
func DeriveStatus(totalCents int64, paidCents int64) string {
	due := totalCents - paidCents
	if due <= 0 {
		return domain.PaymentStatusPaid
	}
	if paidCents > 0 {
		return domain.PaymentStatusPartial
	}
	return domain.PaymentStatusUnpaid
}

// OutstandingDue returns the unpaid remainder of an order, never negative.
func OutstandingDue(totalCents int64, paidCents int64) int64 {
	due := totalCents - paidCents
	if due < 0 {
		return 0
	}
	return due
}

// ApplyPayment folds one payment into an order's ledger fields and
// returns the updated order. It rejects non-positive amounts but does not
// police over-payment; callers that want a hard ceiling check the
// outstanding due before calling.
func ApplyPayment(order domain.Order, amountCents int64) (domain.Order, error) {
	if amountCents <= 0 {
		return order, ErrInvalidAmount
	}
	order.PaidCents += amountCents
	order.DueCents = OutstandingDue(order.TotalCents, order.PaidCents)
	order.PaymentStatus = DeriveStatus(order.TotalCents, order.PaidCents)
	return order, nil
}

// Summarize reduces a set of orders to aggregate accounting figures in a
// single pass. Orders that never touched the ledger (empty payment
// status) count as Unpaid with their full total outstanding.
func Summarize(orders []domain.Order) domain.AccountingSummary {
	summary := domain.AccountingSummary{TotalOrders: len(orders)}
	for _, order := range orders {
		summary.TotalRevenueCents += order.TotalCents
		summary.TotalPaidCents += order.PaidCents

		status := order.PaymentStatus
		due := order.DueCents
		if status == "" {
			status = domain.PaymentStatusUnpaid
			due = order.TotalCents
		}
		summary.TotalDueCents += due

		switch status {
		case domain.PaymentStatusPaid:
			summary.PaidOrders++
		case domain.PaymentStatusPartial:
			summary.PartialOrders++
		default:
			summary.UnpaidOrders++
		}
	}
	return summary
}

// Statement builds a retailer's account statement: their orders newest
// first plus running totals, using the same missing-ledger defaults as
// Summarize.
func Statement(retailerID string, retailerEmail string, orders []domain.Order) domain.RetailerStatement {
	sorted := make([]domain.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderedAt.After(sorted[j].OrderedAt)
	})

	stmt := domain.RetailerStatement{
		RetailerID:    retailerID,
		RetailerEmail: retailerEmail,
		Orders:        sorted,
	}
	for _, order := range sorted {
		stmt.TotalOrderedCents += order.TotalCents
		stmt.TotalPaidCents += order.PaidCents
		if order.PaymentStatus == "" {
			stmt.TotalDueCents += order.TotalCents
		} else {
			stmt.TotalDueCents += order.DueCents
		}
	}
	return stmt
}

// NewPayment constructs the append-only payment record for a collection.
func NewPayment(id string, orderID string, amountCents int64, method string, note string, collectedBy string, at time.Time) domain.Payment {
	return domain.Payment{
		ID:          id,
		OrderID:     orderID,
		AmountCents: amountCents,
		Method:      method,
		Note:        note,
		CollectedBy: collectedBy,
		PaidAt:      at,
	}
}

// ValidMethod reports whether method is one of the accepted payment
// channels.
func ValidMethod(method string) bool {
	switch method {
	case domain.PaymentMethodCash,
		domain.PaymentMethodCard,
		domain.PaymentMethodUPI,
		domain.PaymentMethodBankTransfer,
		domain.PaymentMethodCheque:
		return true
	}
	return false
}
