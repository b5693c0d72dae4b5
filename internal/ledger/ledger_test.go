package ledger

import (
	"errors"
	"testing"
	"time"

	"davakart/backend/internal/domain"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		total int64
		paid  int64
		want  string
	}{
		{10000, 0, domain.PaymentStatusUnpaid},
		{10000, 4000, domain.PaymentStatusPartial},
		{10000, 10000, domain.PaymentStatusPaid},
		{10000, 12000, domain.PaymentStatusPaid},
		{0, 0, domain.PaymentStatusPaid},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.total, tc.paid); got != tc.want {
			t.Fatalf("DeriveStatus(%d, %d) = %s, want %s", tc.total, tc.paid, got, tc.want)
		}
	}
}

func TestOutstandingDueNeverNegative(t *testing.T) {
	if got := OutstandingDue(10000, 4000); got != 6000 {
		t.Fatalf("expected 6000, got %d", got)
	}
	if got := OutstandingDue(10000, 12000); got != 0 {
		t.Fatalf("expected clamped 0, got %d", got)
	}
}

func TestApplyPaymentPartialThenSettled(t *testing.T) {
	order := domain.Order{
		ID:            "ord-1",
		TotalCents:    10000,
		PaymentStatus: domain.PaymentStatusUnpaid,
		DueCents:      10000,
	}

	order, err := ApplyPayment(order, 4000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if order.PaidCents != 4000 || order.DueCents != 6000 {
		t.Fatalf("unexpected ledger: paid=%d due=%d", order.PaidCents, order.DueCents)
	}
	if order.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected Partial, got %s", order.PaymentStatus)
	}

	order, err = ApplyPayment(order, 6000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if order.PaidCents != 10000 || order.DueCents != 0 {
		t.Fatalf("unexpected ledger: paid=%d due=%d", order.PaidCents, order.DueCents)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected Paid, got %s", order.PaymentStatus)
	}
}

func TestApplyPaymentRejectsNonPositive(t *testing.T) {
	order := domain.Order{TotalCents: 5000}
	if _, err := ApplyPayment(order, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := ApplyPayment(order, -100); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestApplyPaymentClampsOverCollection(t *testing.T) {
	order := domain.Order{TotalCents: 5000, PaidCents: 4000, DueCents: 1000, PaymentStatus: domain.PaymentStatusPartial}
	order, err := ApplyPayment(order, 3000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if order.DueCents != 0 {
		t.Fatalf("expected due clamped to 0, got %d", order.DueCents)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected Paid, got %s", order.PaymentStatus)
	}
	// The raw paid figure keeps the real collected amount.
	if order.PaidCents != 7000 {
		t.Fatalf("expected paid 7000, got %d", order.PaidCents)
	}
}

func TestSummarize(t *testing.T) {
	orders := []domain.Order{
		{TotalCents: 10000, PaidCents: 10000, DueCents: 0, PaymentStatus: domain.PaymentStatusPaid},
		{TotalCents: 8000, PaidCents: 3000, DueCents: 5000, PaymentStatus: domain.PaymentStatusPartial},
		{TotalCents: 6000, PaidCents: 0, DueCents: 6000, PaymentStatus: domain.PaymentStatusUnpaid},
	}

	summary := Summarize(orders)
	if summary.TotalOrders != 3 {
		t.Fatalf("expected 3 orders, got %d", summary.TotalOrders)
	}
	if summary.TotalRevenueCents != 24000 {
		t.Fatalf("expected revenue 24000, got %d", summary.TotalRevenueCents)
	}
	if summary.TotalPaidCents != 13000 {
		t.Fatalf("expected paid 13000, got %d", summary.TotalPaidCents)
	}
	if summary.TotalDueCents != 11000 {
		t.Fatalf("expected due 11000, got %d", summary.TotalDueCents)
	}
	if summary.PaidOrders != 1 || summary.PartialOrders != 1 || summary.UnpaidOrders != 1 {
		t.Fatalf("unexpected status counts: %d/%d/%d", summary.PaidOrders, summary.PartialOrders, summary.UnpaidOrders)
	}
}

func TestSummarizeTreatsMissingLedgerAsUnpaid(t *testing.T) {
	orders := []domain.Order{
		{TotalCents: 9000},
	}

	summary := Summarize(orders)
	if summary.UnpaidOrders != 1 {
		t.Fatalf("expected order counted as unpaid")
	}
	if summary.TotalDueCents != 9000 {
		t.Fatalf("expected full total due, got %d", summary.TotalDueCents)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary != (domain.AccountingSummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestStatementNewestFirstWithTotals(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{ID: "ord-old", TotalCents: 5000, PaidCents: 5000, DueCents: 0, PaymentStatus: domain.PaymentStatusPaid, OrderedAt: base},
		{ID: "ord-new", TotalCents: 7000, OrderedAt: base.AddDate(0, 0, 3)},
	}

	stmt := Statement("ret-1", "retailer@davakart.in", orders)
	if stmt.RetailerID != "ret-1" {
		t.Fatalf("unexpected retailer id %s", stmt.RetailerID)
	}
	if len(stmt.Orders) != 2 || stmt.Orders[0].ID != "ord-new" {
		t.Fatalf("expected newest order first")
	}
	if stmt.TotalOrderedCents != 12000 {
		t.Fatalf("expected ordered 12000, got %d", stmt.TotalOrderedCents)
	}
	if stmt.TotalPaidCents != 5000 {
		t.Fatalf("expected paid 5000, got %d", stmt.TotalPaidCents)
	}
	// ord-new never touched the ledger, so its whole total is due.
	if stmt.TotalDueCents != 7000 {
		t.Fatalf("expected due 7000, got %d", stmt.TotalDueCents)
	}
}

func TestStatementDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{ID: "ord-a", OrderedAt: base},
		{ID: "ord-b", OrderedAt: base.AddDate(0, 0, 1)},
	}

	Statement("ret-1", "", orders)
	if orders[0].ID != "ord-a" {
		t.Fatalf("input slice was reordered")
	}
}

func TestValidMethod(t *testing.T) {
	for _, method := range []string{"cash", "card", "upi", "bank_transfer", "cheque"} {
		if !ValidMethod(method) {
			t.Fatalf("expected %s to be valid", method)
		}
	}
	if ValidMethod("barter") || ValidMethod("") {
		t.Fatalf("expected unknown methods to be rejected")
	}
}
