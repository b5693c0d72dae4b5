package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"davakart/backend/internal/domain"
	"davakart/backend/internal/store"
	"davakart/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	medicines       map[string]domain.Medicine
	medicineOrder   []string
	ordersByID      map[string]*domain.Order
	paymentsByOrder map[string][]domain.Payment
	bannersByID     map[string]domain.Banner
	favoritesByKey  map[string]domain.Favorite
	usersByUsername map[string]domain.UserAccount
	auditLogs       []domain.AuditLog
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_RETAILER_PASSWORD.
// If unset, hardcoded dev defaults are used with a warning printed to
// stdout. These credentials are never used in production (the backend
// uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	retailerPwd := envOr("SEED_RETAILER_PASSWORD", "retailer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_RETAILER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_RETAILER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		shopName string
	}{
		{"admin@davakart.in", adminPwd, domain.RoleAdmin, ""},
		{"retailer@davakart.in", retailerPwd, domain.RoleRetailer, "Sharma Medicos"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        xid.New("usr"),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			ShopName:  u.shopName,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	medicines := []domain.Medicine{
		{ID: "med-paracip-500", Code: "PARA-500", Name: "Paracip 500mg", Category: "analgesic", Manufacturer: "Cipla", Unit: "strip of 10", PriceCents: 1850, MRPCents: 2200, Stock: 180, Dosage: "500mg", Composition: "Paracetamol", Active: true},
		{ID: "med-azithral-500", Code: "AZI-500", Name: "Azithral 500mg", Category: "antibiotic", Manufacturer: "Alembic", Unit: "strip of 5", PriceCents: 9800, MRPCents: 11900, Stock: 90, Dosage: "500mg", Composition: "Azithromycin", Active: true},
		{ID: "med-pan-40", Code: "PAN-40", Name: "Pan 40mg", Category: "antacid", Manufacturer: "Alkem", Unit: "strip of 15", PriceCents: 11200, MRPCents: 13500, Stock: 140, Dosage: "40mg", Composition: "Pantoprazole", Active: true},
		{ID: "med-cetiriz-10", Code: "CET-10", Name: "Cetirizine 10mg", Category: "antihistamine", Manufacturer: "Dr Reddy's", Unit: "strip of 10", PriceCents: 1400, MRPCents: 1800, Stock: 220, Dosage: "10mg", Composition: "Cetirizine HCl", Active: true},
		{ID: "med-metfor-500", Code: "MET-500", Name: "Glycomet 500mg", Category: "antidiabetic", Manufacturer: "USV", Unit: "strip of 20", PriceCents: 3200, MRPCents: 3900, Stock: 160, Dosage: "500mg", Composition: "Metformin", Active: true},
		{ID: "med-amlod-5", Code: "AML-5", Name: "Amlong 5mg", Category: "antihypertensive", Manufacturer: "Micro Labs", Unit: "strip of 15", PriceCents: 4100, MRPCents: 4900, Stock: 130, Dosage: "5mg", Composition: "Amlodipine", Active: true},
		{ID: "med-orsl-200", Code: "ORS-200", Name: "ORSL Electrolyte Drink", Category: "rehydration", Manufacturer: "JNTL", Unit: "200ml bottle", PriceCents: 3500, MRPCents: 4000, Stock: 75, Composition: "Electrolytes, Glucose", Active: true},
		{ID: "med-betadine-oint", Code: "BET-OIN", Name: "Betadine Ointment 20g", Category: "antiseptic", Manufacturer: "Win-Medicare", Unit: "20g tube", PriceCents: 9200, MRPCents: 10500, Stock: 60, Composition: "Povidone Iodine", Active: true},
		{ID: "med-dolo-650", Code: "DOLO-650", Name: "Dolo 650mg", Category: "analgesic", Manufacturer: "Micro Labs", Unit: "strip of 15", PriceCents: 2900, MRPCents: 3400, Stock: 240, Dosage: "650mg", Composition: "Paracetamol", Active: true},
		{ID: "med-vitd3-60k", Code: "VITD3-60K", Name: "Uprise D3 60K", Category: "supplement", Manufacturer: "Alkem", Unit: "strip of 4", PriceCents: 10800, MRPCents: 12600, Stock: 50, Dosage: "60000 IU", Composition: "Cholecalciferol", Active: true},
		{ID: "med-cough-benadryl", Code: "BEN-150", Name: "Benadryl Syrup 150ml", Category: "cough-cold", Manufacturer: "JNTL", Unit: "150ml bottle", PriceCents: 11500, MRPCents: 13200, Stock: 85, Composition: "Diphenhydramine", Active: true},
		{ID: "med-soframycin", Code: "SOF-30", Name: "Soframycin Cream 30g", Category: "antiseptic", Manufacturer: "Encube", Unit: "30g tube", PriceCents: 5400, MRPCents: 6300, Stock: 0, Composition: "Framycetin", Active: true},
	}

	medicineMap := make(map[string]domain.Medicine, len(medicines))
	order := make([]string, 0, len(medicines))
	for _, m := range medicines {
		medicineMap[m.ID] = m
		order = append(order, m.ID)
	}

	banners := []domain.Banner{
		{ID: xid.New("banner"), Title: "Monsoon Essentials", Subtitle: "Stock up on ORS and antipyretics", Color: "#0f766e", Icon: "umbrella", Active: true, SortOrder: 1, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
		{ID: xid.New("banner"), Title: "Credit Terms Available", Subtitle: "Pay in parts on delivered orders", Color: "#92400e", Icon: "wallet", Active: true, SortOrder: 2, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
	}
	bannerMap := make(map[string]domain.Banner, len(banners))
	for _, b := range banners {
		bannerMap[b.ID] = b
	}

	return &Store{
		medicines:       medicineMap,
		medicineOrder:   order,
		ordersByID:      make(map[string]*domain.Order),
		paymentsByOrder: make(map[string][]domain.Payment),
		bannersByID:     bannerMap,
		favoritesByKey:  make(map[string]domain.Favorite),
		usersByUsername: seedUsers(),
		auditLogs:       make([]domain.AuditLog, 0, 128),
	}
}

func (s *Store) ListMedicines(_ context.Context, includeInactive bool) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	medicines := make([]domain.Medicine, 0, len(s.medicineOrder))
	for _, id := range s.medicineOrder {
		m, ok := s.medicines[id]
		if !ok {
			continue
		}
		if !includeInactive && !m.Active {
			continue
		}
		medicines = append(medicines, m)
	}
	return medicines, nil
}

func (s *Store) GetMedicineByID(_ context.Context, id string) (*domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	med, exists := s.medicines[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyMed := med
	return &copyMed, nil
}

func (s *Store) GetMedicinesByIDs(_ context.Context, ids []string) (map[string]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Medicine, len(ids))
	for _, id := range ids {
		if m, ok := s.medicines[id]; ok && m.Active {
			result[id] = m
		}
	}
	return result, nil
}

func (s *Store) CreateMedicine(_ context.Context, med domain.Medicine) (*domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if med.Name == "" || med.Category == "" || med.PriceCents < 1 {
		return nil, store.ErrInvalidOrder
	}
	if med.ID == "" {
		med.ID = xid.New("med")
	}
	if _, exists := s.medicines[med.ID]; exists {
		return nil, store.ErrConflict
	}
	for _, existing := range s.medicines {
		if med.Code != "" && existing.Code == med.Code {
			return nil, store.ErrConflict
		}
	}

	med.Active = true
	s.medicines[med.ID] = med
	s.medicineOrder = append(s.medicineOrder, med.ID)
	created := med
	return &created, nil
}

func (s *Store) UpdateMedicine(_ context.Context, med domain.Medicine) (*domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if med.ID == "" || med.Name == "" || med.PriceCents < 1 {
		return nil, store.ErrInvalidOrder
	}
	if _, exists := s.medicines[med.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.medicines[med.ID] = med
	updated := med
	return &updated, nil
}

// CreateOrder validates lines against the live catalog, recomputes the
// total from current prices, and decrements stock in the same critical
// section so concurrent orders cannot oversell.
func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.RetailerID == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	total := int64(0)
	recomputed := make([]domain.OrderLine, 0, len(order.Items))
	for _, line := range order.Items {
		if line.Qty < 1 {
			return nil, store.ErrInvalidOrder
		}
		med, exists := s.medicines[line.MedicineID]
		if !exists || !med.Active {
			return nil, fmt.Errorf("medicine %s unavailable: %w", line.MedicineID, store.ErrInvalidOrder)
		}
		if med.Stock < line.Qty {
			return nil, store.ErrInsufficientStock
		}
		recomputed = append(recomputed, domain.OrderLine{
			MedicineID:     med.ID,
			Name:           med.Name,
			UnitPriceCents: med.PriceCents,
			Qty:            line.Qty,
		})
		total += int64(line.Qty) * med.PriceCents
	}

	for _, line := range recomputed {
		med := s.medicines[line.MedicineID]
		med.Stock -= line.Qty
		s.medicines[line.MedicineID] = med
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

	saved := cloneOrder(&order)
	s.ordersByID[order.ID] = saved
	return cloneOrder(saved), nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) ListOrdersByRetailer(_ context.Context, retailerID string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, 32)
	for _, order := range s.ordersByID {
		if order.RetailerID != retailerID {
			continue
		}
		result = append(result, *cloneOrder(order))
	}
	sortOrdersNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		result = append(result, *cloneOrder(order))
	}
	sortOrdersNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	order.Status = status
	return cloneOrder(order), nil
}

// CancelOrder marks the order cancelled and returns each line's quantity
// to stock.
func (s *Store) CancelOrder(_ context.Context, id string, reason string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusDelivered {
		return nil, store.ErrInvalidOrder
	}

	for _, line := range order.Items {
		med, exists := s.medicines[line.MedicineID]
		if !exists {
			continue
		}
		med.Stock += line.Qty
		s.medicines[line.MedicineID] = med
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelReason = reason
	order.CancelledAt = &at
	return cloneOrder(order), nil
}

// CreatePayment appends the payment record and persists the caller's
// already-recomputed ledger fields on the order in one step.
func (s *Store) CreatePayment(_ context.Context, payment domain.Payment, order domain.Order) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.ordersByID[order.ID]
	if !ok || payment.OrderID != order.ID {
		return nil, store.ErrNotFound
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}

	existing.PaidCents = order.PaidCents
	existing.DueCents = order.DueCents
	existing.PaymentStatus = order.PaymentStatus
	s.paymentsByOrder[order.ID] = append(s.paymentsByOrder[order.ID], payment)

	created := payment
	return &created, nil
}

func (s *Store) ListPaymentsByOrder(_ context.Context, orderID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := s.paymentsByOrder[orderID]
	result := make([]domain.Payment, len(payments))
	copy(result, payments)
	slices.SortFunc(result, func(a, b domain.Payment) int {
		if a.PaidAt.Equal(b.PaidAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.PaidAt.After(b.PaidAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) ListBanners(_ context.Context, activeOnly bool) ([]domain.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banners := make([]domain.Banner, 0, len(s.bannersByID))
	for _, b := range s.bannersByID {
		if activeOnly && !b.Active {
			continue
		}
		banners = append(banners, b)
	}
	slices.SortFunc(banners, func(a, b domain.Banner) int {
		if a.SortOrder == b.SortOrder {
			return cmpString(a.ID, b.ID)
		}
		if a.SortOrder < b.SortOrder {
			return -1
		}
		return 1
	})
	return banners, nil
}

func (s *Store) CreateBanner(_ context.Context, banner domain.Banner) (*domain.Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(banner.Title) == "" {
		return nil, store.ErrInvalidOrder
	}
	if banner.ID == "" {
		banner.ID = xid.New("banner")
	}
	now := time.Now().UTC()
	if banner.CreatedAt.IsZero() {
		banner.CreatedAt = now
	}
	banner.UpdatedAt = now
	banner.Active = true

	s.bannersByID[banner.ID] = banner
	created := banner
	return &created, nil
}

func (s *Store) UpdateBanner(_ context.Context, banner domain.Banner) (*domain.Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bannersByID[banner.ID]; !exists {
		return nil, store.ErrNotFound
	}
	banner.UpdatedAt = time.Now().UTC()
	s.bannersByID[banner.ID] = banner
	updated := banner
	return &updated, nil
}

func (s *Store) GetBannerByID(_ context.Context, id string) (*domain.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banner, exists := s.bannersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyBanner := banner
	return &copyBanner, nil
}

func (s *Store) DeleteBanner(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bannersByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.bannersByID, id)
	return nil
}

func (s *Store) AddFavorite(_ context.Context, fav domain.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fav.RetailerID == "" || fav.MedicineID == "" {
		return store.ErrInvalidOrder
	}
	if _, exists := s.medicines[fav.MedicineID]; !exists {
		return store.ErrNotFound
	}
	if fav.AddedAt.IsZero() {
		fav.AddedAt = time.Now().UTC()
	}
	s.favoritesByKey[favoriteKey(fav.RetailerID, fav.MedicineID)] = fav
	return nil
}

func (s *Store) RemoveFavorite(_ context.Context, retailerID string, medicineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := favoriteKey(retailerID, medicineID)
	if _, exists := s.favoritesByKey[key]; !exists {
		return store.ErrNotFound
	}
	delete(s.favoritesByKey, key)
	return nil
}

func (s *Store) ListFavorites(_ context.Context, retailerID string) ([]domain.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Favorite, 0, 16)
	for _, fav := range s.favoritesByKey {
		if fav.RetailerID != retailerID {
			continue
		}
		result = append(result, fav)
	}
	slices.SortFunc(result, func(a, b domain.Favorite) int {
		if a.AddedAt.Equal(b.AddedAt) {
			return cmpString(a.MedicineID, b.MedicineID)
		}
		if a.AddedAt.After(b.AddedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidOrder
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleRetailer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidOrder
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortOrdersNewestFirst(orders []domain.Order) {
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.OrderedAt.Equal(b.OrderedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.OrderedAt.After(b.OrderedAt) {
			return -1
		}
		return 1
	})
}

func favoriteKey(retailerID string, medicineID string) string {
	return retailerID + "::" + medicineID
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneOrder(src *domain.Order) *domain.Order {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.OrderLine, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	if src.CancelledAt != nil {
		at := *src.CancelledAt
		dup.CancelledAt = &at
	}
	return &dup
}
