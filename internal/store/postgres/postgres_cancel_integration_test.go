package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"davakart/backend/internal/domain"
)

func TestCancelOrderRestocksMedicines(t *testing.T) {
	databaseURL := os.Getenv("DAVAKART_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DAVAKART_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	medID := fmt.Sprintf("med-cancel-it-%d", stamp)
	retailerID := fmt.Sprintf("usr-cancel-it-%d", stamp)

	var orderID string
	t.Cleanup(func() {
		if orderID != "" {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, medID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO medicines (id, code, name, category, manufacturer, unit, price_cents, mrp_cents, stock, description, dosage, composition, active, created_at, updated_at)
		VALUES ($1, $1, 'Cancel IT Tablet', 'analgesic', 'Testlab', 'strip of 10', 2500, 3000, 10, '', '500mg', 'Paracetamol', true, now(), now())
	`, medID); err != nil {
		t.Fatalf("insert medicine: %v", err)
	}

	created, err := s.CreateOrder(ctx, domain.Order{
		RetailerID:    retailerID,
		RetailerEmail: "cancel-it@davakart.in",
		Items:         []domain.OrderLine{{MedicineID: medID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	orderID = created.ID

	var qty int
	if err := s.db.QueryRowContext(ctx, `SELECT stock FROM medicines WHERE id = $1`, medID).Scan(&qty); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if qty != 7 {
		t.Fatalf("expected stock 7 after order, got %d", qty)
	}

	cancelled, err := s.CancelOrder(ctx, orderID, "integration test cancel", time.Now().UTC())
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusCancelled, cancelled.Status)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT stock FROM medicines WHERE id = $1`, medID).Scan(&qty); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if qty != 10 {
		t.Fatalf("expected stock 10 after cancel restock, got %d", qty)
	}
}
