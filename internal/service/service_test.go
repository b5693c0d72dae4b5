package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"davakart/backend/internal/cache"
	"davakart/backend/internal/domain"
	"davakart/backend/internal/ledger"
	"davakart/backend/internal/recommendation"
	"davakart/backend/internal/store"
	"davakart/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	recommender := recommendation.NewEngine(cache.NoopRecommendationCache{}, 5*time.Second)
	return New(repo, recommender, 6)
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "admin@davakart.in",
		Role:     domain.RoleAdmin,
	})
}

func retailerContext(retailerID string) context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username:   "retailer@davakart.in",
		Role:       domain.RoleRetailer,
		RetailerID: retailerID,
	})
}

func TestPlaceOrderComputesTotalAndDecrementsStock(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	resp, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		DeliveryAddress: "12 MG Road, Pune",
		Items: []domain.OrderLineRequest{
			{MedicineID: "med-paracip-500", Qty: 3},
			{MedicineID: "med-dolo-650", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	wantTotal := int64(3*1850 + 2*2900)
	if resp.Order.TotalCents != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, resp.Order.TotalCents)
	}
	if resp.Order.Status != domain.OrderStatusPending {
		t.Fatalf("expected Pending status, got %s", resp.Order.Status)
	}
	if resp.Order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected Unpaid payment status, got %s", resp.Order.PaymentStatus)
	}
	if resp.Order.DueCents != wantTotal {
		t.Fatalf("expected due %d, got %d", wantTotal, resp.Order.DueCents)
	}

	med, err := svc.GetMedicine(ctx, "med-paracip-500")
	if err != nil {
		t.Fatalf("get medicine failed: %v", err)
	}
	if med.Stock != 177 {
		t.Fatalf("expected stock 177 after order, got %d", med.Stock)
	}
}

func TestPlaceOrderRejectsInsufficientStock(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	_, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{MedicineID: "med-soframycin", Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	_, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{MedicineID: "", Qty: 5},
			{MedicineID: "med-pan-40", Qty: 0},
		},
	})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected invalid order error, got %v", err)
	}
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	resp, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{MedicineID: "med-pan-40", Qty: 2},
			{MedicineID: "med-pan-40", Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if len(resp.Order.Items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(resp.Order.Items))
	}
	if resp.Order.Items[0].Qty != 5 {
		t.Fatalf("expected merged qty 5, got %d", resp.Order.Items[0].Qty)
	}
}

func TestOrderStatusLifecycle(t *testing.T) {
	svc := newTestService()
	retailerCtx := retailerContext("ret-0001")
	adminCtx := adminContext()

	placed, err := svc.PlaceOrder(retailerCtx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	// Pending cannot jump straight to Delivered.
	_, err = svc.UpdateOrderStatus(adminCtx, placed.Order.ID, domain.OrderStatusRequest{Status: domain.OrderStatusDelivered})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}

	dispatched, err := svc.UpdateOrderStatus(adminCtx, placed.Order.ID, domain.OrderStatusRequest{Status: domain.OrderStatusDispatched})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if dispatched.Order.Status != domain.OrderStatusDispatched {
		t.Fatalf("expected Dispatched, got %s", dispatched.Order.Status)
	}

	delivered, err := svc.UpdateOrderStatus(adminCtx, placed.Order.ID, domain.OrderStatusRequest{Status: domain.OrderStatusDelivered})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.Order.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected Delivered, got %s", delivered.Order.Status)
	}

	_, err = svc.UpdateOrderStatus(adminCtx, placed.Order.ID, domain.OrderStatusRequest{Status: domain.OrderStatusDispatched})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected delivered order to be terminal, got %v", err)
	}
}

func TestUpdateOrderStatusRequiresAdmin(t *testing.T) {
	svc := newTestService()
	retailerCtx := retailerContext("ret-0001")

	placed, err := svc.PlaceOrder(retailerCtx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	_, err = svc.UpdateOrderStatus(retailerCtx, placed.Order.ID, domain.OrderStatusRequest{Status: domain.OrderStatusDispatched})
	if err == nil {
		t.Fatalf("expected role error for retailer status change")
	}
}

func TestCancelOrderRestocksAndBlocksRepeat(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	placed, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-cetiriz-10", Qty: 4}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, placed.Order.ID, domain.OrderCancelRequest{Reason: "ordered by mistake"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", cancelled.Order.Status)
	}
	if cancelled.Order.CancelledAt == nil {
		t.Fatalf("expected cancelled timestamp to be set")
	}

	med, err := svc.GetMedicine(ctx, "med-cetiriz-10")
	if err != nil {
		t.Fatalf("get medicine failed: %v", err)
	}
	if med.Stock != 220 {
		t.Fatalf("expected stock restored to 220, got %d", med.Stock)
	}

	_, err = svc.CancelOrder(ctx, placed.Order.ID, domain.OrderCancelRequest{})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected repeat cancel to fail, got %v", err)
	}
}

func TestCancelOrderHiddenFromOtherRetailers(t *testing.T) {
	svc := newTestService()

	placed, err := svc.PlaceOrder(retailerContext("ret-0001"), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	_, err = svc.CancelOrder(retailerContext("ret-0002"), placed.Order.ID, domain.OrderCancelRequest{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for foreign retailer, got %v", err)
	}
}

func TestRecordPaymentPartialThenSettled(t *testing.T) {
	svc := newTestService()
	retailerCtx := retailerContext("ret-0001")
	adminCtx := adminContext()

	placed, err := svc.PlaceOrder(retailerCtx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-paracip-500", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	total := placed.Order.TotalCents

	partial, err := svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: total / 2,
		Method:      domain.PaymentMethodUPI,
		Note:        "first collection",
	})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if partial.Order.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected Partial, got %s", partial.Order.PaymentStatus)
	}
	if partial.Order.DueCents != total-total/2 {
		t.Fatalf("expected due %d, got %d", total-total/2, partial.Order.DueCents)
	}

	settled, err := svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: total - total/2,
		Method:      domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if settled.Order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected Paid, got %s", settled.Order.PaymentStatus)
	}
	if settled.Order.DueCents != 0 {
		t.Fatalf("expected zero due, got %d", settled.Order.DueCents)
	}

	history, err := svc.ListPayments(adminCtx, placed.Order.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(history.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(history.Payments))
	}
}

func TestRecordPaymentRejectsOverAndNonPositive(t *testing.T) {
	svc := newTestService()
	adminCtx := adminContext()

	placed, err := svc.PlaceOrder(retailerContext("ret-0001"), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	_, err = svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: placed.Order.TotalCents + 1,
		Method:      domain.PaymentMethodCash,
	})
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected over-payment rejection, got %v", err)
	}

	_, err = svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: 0,
		Method:      domain.PaymentMethodCash,
	})
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected zero-amount rejection, got %v", err)
	}
}

func TestRecordPaymentRejectsUnknownMethodAndCancelled(t *testing.T) {
	svc := newTestService()
	retailerCtx := retailerContext("ret-0001")
	adminCtx := adminContext()

	placed, err := svc.PlaceOrder(retailerCtx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	_, err = svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: 100,
		Method:      "barter",
	})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected unknown method rejection, got %v", err)
	}

	if _, err := svc.CancelOrder(retailerCtx, placed.Order.ID, domain.OrderCancelRequest{}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	_, err = svc.RecordPayment(adminCtx, placed.Order.ID, domain.PaymentCreateRequest{
		AmountCents: 100,
		Method:      domain.PaymentMethodCash,
	})
	if !errors.Is(err, store.ErrInvalidOrder) {
		t.Fatalf("expected cancelled-order rejection, got %v", err)
	}
}

func TestRecommendationsColdStartUsesCatalogOrder(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-fresh")

	resp, err := svc.Recommendations(ctx)
	if err != nil {
		t.Fatalf("recommendations failed: %v", err)
	}
	if len(resp.Recommendations) != 6 {
		t.Fatalf("expected 6 cold-start recommendations, got %d", len(resp.Recommendations))
	}
	if resp.Recommendations[0].Medicine.ID != "med-paracip-500" {
		t.Fatalf("expected catalog-first cold start, got %s", resp.Recommendations[0].Medicine.ID)
	}
}

func TestRecommendationsRankPurchasedFirst(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	for i := 0; i < 3; i++ {
		_, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
			Items: []domain.OrderLineRequest{{MedicineID: "med-metfor-500", Qty: 4}},
		})
		if err != nil {
			t.Fatalf("place order failed: %v", err)
		}
	}

	resp, err := svc.Recommendations(ctx)
	if err != nil {
		t.Fatalf("recommendations failed: %v", err)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatalf("expected recommendations")
	}
	if resp.Recommendations[0].Medicine.ID != "med-metfor-500" {
		t.Fatalf("expected repeatedly purchased medicine first, got %s", resp.Recommendations[0].Medicine.ID)
	}
}

func TestReorderBadgeFollowsPurchaseAge(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	_, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-amlod-5", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	badge, err := svc.ReorderBadge(ctx, "med-amlod-5")
	if err != nil {
		t.Fatalf("reorder badge failed: %v", err)
	}
	if badge.ShowBadge {
		t.Fatalf("expected no badge right after purchase")
	}

	never, err := svc.ReorderBadge(ctx, "med-orsl-200")
	if err != nil {
		t.Fatalf("reorder badge failed: %v", err)
	}
	if never.ShowBadge {
		t.Fatalf("expected no badge for never-purchased medicine")
	}
}

func TestAccountingSummaryAcrossRetailers(t *testing.T) {
	svc := newTestService()
	adminCtx := adminContext()

	first, err := svc.PlaceOrder(retailerContext("ret-0001"), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-paracip-500", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	_, err = svc.PlaceOrder(retailerContext("ret-0002"), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{{MedicineID: "med-dolo-650", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	_, err = svc.RecordPayment(adminCtx, first.Order.ID, domain.PaymentCreateRequest{
		AmountCents: first.Order.TotalCents,
		Method:      domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}

	summary, err := svc.AccountingSummary(adminCtx)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", summary.TotalOrders)
	}
	if summary.PaidOrders != 1 || summary.UnpaidOrders != 1 {
		t.Fatalf("expected 1 paid / 1 unpaid, got %d / %d", summary.PaidOrders, summary.UnpaidOrders)
	}
	if summary.TotalRevenueCents != first.Order.TotalCents+2900 {
		t.Fatalf("unexpected revenue %d", summary.TotalRevenueCents)
	}
	if summary.TotalPaidCents != first.Order.TotalCents {
		t.Fatalf("unexpected paid %d", summary.TotalPaidCents)
	}
	if summary.TotalDueCents != 2900 {
		t.Fatalf("unexpected due %d", summary.TotalDueCents)
	}
}

func TestRetailerStatementNewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	var lastID string
	for _, medID := range []string{"med-paracip-500", "med-dolo-650"} {
		resp, err := svc.PlaceOrder(ctx, domain.OrderCreateRequest{
			Items: []domain.OrderLineRequest{{MedicineID: medID, Qty: 1}},
		})
		if err != nil {
			t.Fatalf("place order failed: %v", err)
		}
		lastID = resp.Order.ID
		time.Sleep(2 * time.Millisecond)
	}

	statement, err := svc.RetailerStatement(adminContext(), "ret-0001")
	if err != nil {
		t.Fatalf("statement failed: %v", err)
	}
	if len(statement.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(statement.Orders))
	}
	if statement.Orders[0].ID != lastID {
		t.Fatalf("expected newest order first")
	}
	if statement.TotalDueCents != statement.TotalOrderedCents {
		t.Fatalf("expected everything still due")
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	if err := svc.AddFavorite(ctx, "med-dolo-650"); err != nil {
		t.Fatalf("add favorite failed: %v", err)
	}
	if err := svc.AddFavorite(ctx, "med-pan-40"); err != nil {
		t.Fatalf("add favorite failed: %v", err)
	}
	// Duplicate add is a no-op.
	if err := svc.AddFavorite(ctx, "med-dolo-650"); err != nil {
		t.Fatalf("duplicate add failed: %v", err)
	}

	list, err := svc.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list favorites failed: %v", err)
	}
	if len(list.Medicines) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(list.Medicines))
	}

	if err := svc.RemoveFavorite(ctx, "med-dolo-650"); err != nil {
		t.Fatalf("remove favorite failed: %v", err)
	}
	list, err = svc.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list favorites failed: %v", err)
	}
	if len(list.Medicines) != 1 || list.Medicines[0].ID != "med-pan-40" {
		t.Fatalf("unexpected favorites after removal")
	}
}

func TestMedicineAdminLifecycle(t *testing.T) {
	svc := newTestService()
	adminCtx := adminContext()

	created, err := svc.CreateMedicine(adminCtx, domain.MedicineCreateRequest{
		Code:         "crocin-650",
		Name:         "Crocin Advance 650",
		Category:     "analgesic",
		Manufacturer: "GSK",
		Unit:         "strip of 15",
		PriceCents:   3100,
		MRPCents:     3600,
		InitialStock: 40,
	})
	if err != nil {
		t.Fatalf("create medicine failed: %v", err)
	}
	if created.Code != "CROCIN-650" {
		t.Fatalf("expected upper-cased code, got %s", created.Code)
	}

	newPrice := int64(3300)
	updated, err := svc.UpdateMedicine(adminCtx, created.ID, domain.MedicineUpdateRequest{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("update medicine failed: %v", err)
	}
	if updated.PriceCents != 3300 {
		t.Fatalf("expected price 3300, got %d", updated.PriceCents)
	}

	if err := svc.DeleteMedicine(adminCtx, created.ID); err != nil {
		t.Fatalf("delete medicine failed: %v", err)
	}

	visible, err := svc.ListMedicines(retailerContext("ret-0001"))
	if err != nil {
		t.Fatalf("list medicines failed: %v", err)
	}
	for _, med := range visible {
		if med.ID == created.ID {
			t.Fatalf("soft-deleted medicine should not be visible to retailers")
		}
	}

	all, err := svc.ListMedicines(adminCtx)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	found := false
	for _, med := range all {
		if med.ID == created.ID && !med.Active {
			found = true
		}
	}
	if !found {
		t.Fatalf("admin should still see the inactive medicine")
	}
}

func TestMedicineWritesRequireAdmin(t *testing.T) {
	svc := newTestService()
	ctx := retailerContext("ret-0001")

	_, err := svc.CreateMedicine(ctx, domain.MedicineCreateRequest{
		Name: "Unauthorized", Category: "misc", PriceCents: 100,
	})
	if err == nil {
		t.Fatalf("expected role error")
	}
}

func TestBannerLifecycle(t *testing.T) {
	svc := newTestService()
	adminCtx := adminContext()

	created, err := svc.CreateBanner(adminCtx, domain.BannerCreateRequest{
		Title:    "Festive Offers",
		Subtitle: "Diwali stocking discounts",
		Color:    "#b45309",
	})
	if err != nil {
		t.Fatalf("create banner failed: %v", err)
	}

	off := false
	if _, err := svc.UpdateBanner(adminCtx, created.ID, domain.BannerUpdateRequest{Active: &off}); err != nil {
		t.Fatalf("update banner failed: %v", err)
	}

	active, err := svc.ListActiveBanners(context.Background())
	if err != nil {
		t.Fatalf("list active banners failed: %v", err)
	}
	for _, b := range active.Banners {
		if b.ID == created.ID {
			t.Fatalf("deactivated banner should not be listed as active")
		}
	}

	if err := svc.DeleteBanner(adminCtx, created.ID); err != nil {
		t.Fatalf("delete banner failed: %v", err)
	}
	if err := svc.DeleteBanner(adminCtx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

func TestAuditTrailRecordsAdminActions(t *testing.T) {
	svc := newTestService()
	adminCtx := adminContext()

	_, err := svc.CreateBanner(adminCtx, domain.BannerCreateRequest{Title: "Audit Me"})
	if err != nil {
		t.Fatalf("create banner failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(adminCtx, time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "banner_create" && entry.ActorUsername == "admin@davakart.in" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected banner_create audit entry")
	}
}
