package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"davakart/backend/internal/domain"
	"davakart/backend/internal/store"
	"davakart/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const medicineColumns = `id, code, name, category, manufacturer, unit, price_cents, mrp_cents, stock, description, dosage, composition, active`

func (s *Store) ListMedicines(ctx context.Context, includeInactive bool) ([]domain.Medicine, error) {
	query := `
		SELECT ` + medicineColumns + `
		FROM medicines
	`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	medicines := make([]domain.Medicine, 0, 128)
	for rows.Next() {
		med, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, med)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return medicines, nil
}

func (s *Store) GetMedicineByID(ctx context.Context, id string) (*domain.Medicine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE id = $1
	`, id)
	med, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &med, nil
}

func (s *Store) GetMedicinesByIDs(ctx context.Context, ids []string) (map[string]domain.Medicine, error) {
	result := make(map[string]domain.Medicine, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		med, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		result[med.ID] = med
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error) {
	if med.Name == "" || med.Category == "" || med.PriceCents < 1 {
		return nil, store.ErrInvalidOrder
	}
	if med.ID == "" {
		med.ID = xid.New("med")
	}
	med.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medicines (
			id, code, name, category, manufacturer, unit, price_cents, mrp_cents,
			stock, description, dosage, composition, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
	`, med.ID, nullIfEmpty(med.Code), med.Name, med.Category, med.Manufacturer, med.Unit,
		med.PriceCents, med.MRPCents, med.Stock, med.Description, med.Dosage, med.Composition, med.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := med
	return &created, nil
}

func (s *Store) UpdateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error) {
	if med.ID == "" || med.Name == "" || med.PriceCents < 1 {
		return nil, store.ErrInvalidOrder
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE medicines
		SET code = $2, name = $3, category = $4, manufacturer = $5, unit = $6,
			price_cents = $7, mrp_cents = $8, stock = $9, description = $10,
			dosage = $11, composition = $12, active = $13, updated_at = now()
		WHERE id = $1
	`, med.ID, nullIfEmpty(med.Code), med.Name, med.Category, med.Manufacturer, med.Unit,
		med.PriceCents, med.MRPCents, med.Stock, med.Description, med.Dosage, med.Composition, med.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := med
	return &updated, nil
}

// CreateOrder runs in a serializable transaction: it locks the medicine
// rows, recomputes the total from live prices, and decrements stock so
// concurrent orders cannot oversell.
func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.RetailerID == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := uniqueMedicineIDs(order.Items)
	if len(ids) == 0 {
		return nil, store.ErrInvalidOrder
	}

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, price_cents, stock
		FROM medicines
		WHERE active = true AND id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	type medState struct {
		name       string
		priceCents int64
		stock      int
	}
	medMap := make(map[string]medState, len(ids))
	for rows.Next() {
		var id string
		var ms medState
		if err := rows.Scan(&id, &ms.name, &ms.priceCents, &ms.stock); err != nil {
			_ = rows.Close()
			return nil, err
		}
		medMap[id] = ms
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	total := int64(0)
	recomputed := make([]domain.OrderLine, 0, len(order.Items))
	for _, line := range order.Items {
		if line.Qty < 1 {
			return nil, store.ErrInvalidOrder
		}
		med, exists := medMap[line.MedicineID]
		if !exists {
			return nil, fmt.Errorf("medicine %s unavailable: %w", line.MedicineID, store.ErrInvalidOrder)
		}
		if med.stock < line.Qty {
			return nil, store.ErrInsufficientStock
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE medicines
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, line.Qty, line.MedicineID)
		if err != nil {
			return nil, err
		}

		recomputed = append(recomputed, domain.OrderLine{
			MedicineID:     line.MedicineID,
			Name:           med.name,
			UnitPriceCents: med.priceCents,
			Qty:            line.Qty,
		})
		total += med.priceCents * int64(line.Qty)
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.OrderedAt.IsZero() {
		order.OrderedAt = time.Now().UTC()
	}
	order.Items = recomputed
	order.TotalCents = total
	order.PaidCents = 0
	order.DueCents = total
	order.Status = domain.OrderStatusPending
	order.PaymentStatus = domain.PaymentStatusUnpaid

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (
			id, retailer_id, retailer_email, total_cents, paid_cents, due_cents,
			status, payment_status, delivery_address, cancel_reason, cancelled_at, ordered_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULL,NULL,$10)
	`, order.ID, order.RetailerID, order.RetailerEmail, order.TotalCents, order.PaidCents,
		order.DueCents, order.Status, order.PaymentStatus, order.DeliveryAddress, order.OrderedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range order.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, medicine_id, name, unit_price_cents, qty)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, line.MedicineID, line.Name, line.UnitPriceCents, line.Qty)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrderRow(s.db.QueryRowContext(ctx, `
		SELECT id, retailer_id, retailer_email, total_cents, paid_cents, due_cents,
			status, payment_status, delivery_address, cancel_reason, cancelled_at, ordered_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadOrderItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (s *Store) ListOrdersByRetailer(ctx context.Context, retailerID string, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, retailerID, limit)
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.listOrders(ctx, "", limit)
}

func (s *Store) listOrders(ctx context.Context, retailerID string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, retailer_id, retailer_email, total_cents, paid_cents, due_cents,
			status, payment_status, delivery_address, cancel_reason, cancelled_at, ordered_at
		FROM orders
		WHERE ($1 = '' OR retailer_id = $1)
		ORDER BY ordered_at DESC, id DESC
		LIMIT $2
	`, retailerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	orderIDs := make([]string, 0, limit)
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadOrderItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *Store) loadOrderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLine, error) {
	result := make(map[string][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, medicine_id, name, unit_price_cents, qty
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var line domain.OrderLine
		if err := rows.Scan(&orderID, &line.MedicineID, &line.Name, &line.UnitPriceCents, &line.Qty); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrderByID(ctx, id)
}

// CancelOrder flips the order to Cancelled and restocks each line in one
// serializable transaction.
func (s *Store) CancelOrder(ctx context.Context, id string, reason string, at time.Time) (*domain.Order, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.OrderStatusCancelled || status == domain.OrderStatusDelivered {
		return nil, store.ErrInvalidOrder
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE medicines m
		SET stock = m.stock + oi.qty, updated_at = now()
		FROM order_items oi
		WHERE oi.order_id = $1 AND oi.medicine_id = m.id
	`, id)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, cancel_reason = $3, cancelled_at = $4, updated_at = now()
		WHERE id = $1
	`, id, domain.OrderStatusCancelled, reason, at)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, id)
}

// CreatePayment appends the payment row and persists the recomputed
// ledger fields on the order atomically.
func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment, order domain.Order) (*domain.Payment, error) {
	if payment.OrderID == "" || payment.OrderID != order.ID {
		return nil, store.ErrNotFound
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	res, err := pgTx.ExecContext(ctx, `
		UPDATE orders
		SET paid_cents = $2, due_cents = $3, payment_status = $4, updated_at = now()
		WHERE id = $1
	`, order.ID, order.PaidCents, order.DueCents, order.PaymentStatus)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount_cents, method, note, collected_by, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, payment.ID, payment.OrderID, payment.AmountCents, payment.Method,
		payment.Note, payment.CollectedBy, payment.PaidAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := payment
	return &created, nil
}

func (s *Store) ListPaymentsByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, amount_cents, method, note, collected_by, paid_at
		FROM payments
		WHERE order_id = $1
		ORDER BY paid_at DESC, id DESC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 8)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Method, &p.Note, &p.CollectedBy, &p.PaidAt); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) ListBanners(ctx context.Context, activeOnly bool) ([]domain.Banner, error) {
	query := `
		SELECT id, title, subtitle, color, icon, link_to, active, sort_order, created_at, updated_at
		FROM banners
	`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY sort_order ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	banners := make([]domain.Banner, 0, 8)
	for rows.Next() {
		var b domain.Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.Subtitle, &b.Color, &b.Icon, &b.LinkTo, &b.Active, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = b.CreatedAt.UTC()
		b.UpdatedAt = b.UpdatedAt.UTC()
		banners = append(banners, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return banners, nil
}

func (s *Store) CreateBanner(ctx context.Context, banner domain.Banner) (*domain.Banner, error) {
	if strings.TrimSpace(banner.Title) == "" {
		return nil, store.ErrInvalidOrder
	}
	if banner.ID == "" {
		banner.ID = xid.New("banner")
	}
	now := time.Now().UTC()
	banner.CreatedAt = now
	banner.UpdatedAt = now
	banner.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO banners (id, title, subtitle, color, icon, link_to, active, sort_order, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, banner.ID, banner.Title, banner.Subtitle, banner.Color, banner.Icon, banner.LinkTo,
		banner.Active, banner.SortOrder, banner.CreatedAt, banner.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created := banner
	return &created, nil
}

func (s *Store) UpdateBanner(ctx context.Context, banner domain.Banner) (*domain.Banner, error) {
	banner.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE banners
		SET title = $2, subtitle = $3, color = $4, icon = $5, link_to = $6,
			active = $7, sort_order = $8, updated_at = $9
		WHERE id = $1
	`, banner.ID, banner.Title, banner.Subtitle, banner.Color, banner.Icon, banner.LinkTo,
		banner.Active, banner.SortOrder, banner.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := banner
	return &updated, nil
}

func (s *Store) GetBannerByID(ctx context.Context, id string) (*domain.Banner, error) {
	var b domain.Banner
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, subtitle, color, icon, link_to, active, sort_order, created_at, updated_at
		FROM banners
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Title, &b.Subtitle, &b.Color, &b.Icon, &b.LinkTo, &b.Active, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (s *Store) DeleteBanner(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddFavorite(ctx context.Context, fav domain.Favorite) error {
	if fav.RetailerID == "" || fav.MedicineID == "" {
		return store.ErrInvalidOrder
	}
	if fav.AddedAt.IsZero() {
		fav.AddedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (retailer_id, medicine_id, added_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (retailer_id, medicine_id) DO NOTHING
	`, fav.RetailerID, fav.MedicineID, fav.AddedAt)
	return err
}

func (s *Store) RemoveFavorite(ctx context.Context, retailerID string, medicineID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE retailer_id = $1 AND medicine_id = $2
	`, retailerID, medicineID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListFavorites(ctx context.Context, retailerID string) ([]domain.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT retailer_id, medicine_id, added_at
		FROM favorites
		WHERE retailer_id = $1
		ORDER BY added_at DESC, medicine_id ASC
	`, retailerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]domain.Favorite, 0, 16)
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.RetailerID, &f.MedicineID, &f.AddedAt); err != nil {
			return nil, err
		}
		f.AddedAt = f.AddedAt.UTC()
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidOrder
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleRetailer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, password, role, shop_name, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, user.ID, user.Username, user.Password, user.Role, user.ShopName, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, shop_name, active, created_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.ID, &user.Username, &user.Password, &user.Role, &user.ShopName, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, shop_name, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.ShopName, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidOrder
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (domain.Medicine, error) {
	var med domain.Medicine
	var code sql.NullString
	err := row.Scan(&med.ID, &code, &med.Name, &med.Category, &med.Manufacturer, &med.Unit,
		&med.PriceCents, &med.MRPCents, &med.Stock, &med.Description, &med.Dosage, &med.Composition, &med.Active)
	if err != nil {
		return med, err
	}
	if code.Valid {
		med.Code = code.String
	}
	return med, nil
}

func scanOrderRow(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var cancelReason sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(&order.ID, &order.RetailerID, &order.RetailerEmail, &order.TotalCents,
		&order.PaidCents, &order.DueCents, &order.Status, &order.PaymentStatus,
		&order.DeliveryAddress, &cancelReason, &cancelledAt, &order.OrderedAt)
	if err != nil {
		return nil, err
	}
	if cancelReason.Valid {
		order.CancelReason = cancelReason.String
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		order.CancelledAt = &at
	}
	order.OrderedAt = order.OrderedAt.UTC()
	return &order, nil
}

func uniqueMedicineIDs(items []domain.OrderLine) []string {
	if len(items) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.MedicineID == "" {
			continue
		}
		set[item.MedicineID] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
